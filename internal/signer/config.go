package signer

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings for the signing service. All values
// come from the environment with the MEDIAVAULT prefix, e.g.
// MEDIAVAULT_ADDR, MEDIAVAULT_S3_ACCESS_KEY.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8090"`

	// SecretHash is the bcrypt hash of the shared bucket secret that
	// upload clients present with every request.
	SecretHash string `envconfig:"SECRET_HASH" required:"true"`

	// JWTSecret enables bearer-token auth for the delete endpoint when
	// non-empty.
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	TokenValidity time.Duration `envconfig:"TOKEN_VALIDITY" default:"15m"`

	S3AccessKey    string        `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey    string        `envconfig:"S3_SECRET_KEY" required:"true"`
	S3Bucket       string        `envconfig:"S3_BUCKET" required:"true"`
	S3Region       string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3BaseEndpoint string        `envconfig:"S3_BASE_ENDPOINT"`
	URLExpiry      time.Duration `envconfig:"URL_EXPIRY" default:"15m"`
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("mediavault", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
