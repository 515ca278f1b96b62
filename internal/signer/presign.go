package signer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for the AWS SDK so tests can exercise the presign path without
// real credentials.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// Presigner issues presigned PUT URLs for bucket objects and removes
// objects on delete requests.
type Presigner struct {
	config *Config
}

func NewPresigner(cfg *Config) *Presigner {
	return &Presigner{config: cfg}
}

func (p *Presigner) s3Client(ctx context.Context, region string) (*s3.Client, error) {
	if region == "" {
		region = p.config.S3Region
	}
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3AccessKey,
			p.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
		}
	}), nil
}

// PresignedPutURL returns a presigned PUT URL for key, valid for the
// configured expiry. The content type is baked into the signature so
// the client must upload with the same header.
func (p *Presigner) PresignedPutURL(ctx context.Context, region, key, contentType string) (string, error) {
	client, err := p.s3Client(ctx, region)
	if err != nil {
		return "", err
	}
	presignClient := newS3PresignClient(client)

	bucket := p.config.S3Bucket
	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if contentType != "" {
		in.ContentType = &contentType
	}

	req, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(p.config.URLExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// DeleteObject removes key from the bucket.
func (p *Presigner) DeleteObject(ctx context.Context, region, key string) error {
	client, err := p.s3Client(ctx, region)
	if err != nil {
		return err
	}

	bucket := p.config.S3Bucket
	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	return err
}
