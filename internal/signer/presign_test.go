package signer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresignConfig() *Config {
	return &Config{
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3Bucket:       "media",
		S3Region:       "us-east-1",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		URLExpiry:      15 * time.Minute,
	}
}

func stubSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origDel := deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		deleteObject = origDel
	})
}

func TestPresignedPutURL(t *testing.T) {
	stubSeams(t)
	p := NewPresigner(testPresignConfig())

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region, "request region overrides the default")
		return aws.Config{}, nil
	}

	var baseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		baseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	var captured s3.PutObjectInput
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		captured = *in
		return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/abc"}, nil
	}

	url, err := p.PresignedPutURL(context.Background(), "eu-central-1", "media/abc.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example.com/abc", url)
	assert.Equal(t, "http://127.0.0.1:9000", baseEndpoint)
	assert.Equal(t, "media", *captured.Bucket)
	assert.Equal(t, "media/abc.png", *captured.Key)
	assert.Equal(t, "image/png", *captured.ContentType)
}

func TestPresignedPutURL_Errors(t *testing.T) {
	stubSeams(t)
	p := NewPresigner(testPresignConfig())

	t.Run("config load fails", func(t *testing.T) {
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("no credentials")
		}

		_, err := p.PresignedPutURL(context.Background(), "", "k", "")
		assert.Error(t, err)
	})

	t.Run("presign fails", func(t *testing.T) {
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, nil
		}
		presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			return nil, errors.New("boom")
		}

		_, err := p.PresignedPutURL(context.Background(), "", "k", "")
		assert.Error(t, err)
	})
}

func TestDeleteObject(t *testing.T) {
	stubSeams(t)
	p := NewPresigner(testPresignConfig())

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}

	var captured s3.DeleteObjectInput
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		captured = *in
		return &s3.DeleteObjectOutput{}, nil
	}

	require.NoError(t, p.DeleteObject(context.Background(), "", "media/abc.png"))
	assert.Equal(t, "media", *captured.Bucket)
	assert.Equal(t, "media/abc.png", *captured.Key)
}
