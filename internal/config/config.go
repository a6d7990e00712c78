package config

import (
	"encoding/base64"
	"fmt"
)

const defaultMaxBodyBytes = 4 << 20

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base used to build links to uploaded objects,
	// e.g. https://cdn.example.com/chat-images
	PublicURL string
}

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	MaxBodyBytes   int64
	S3             S3Config
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("empty secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		MaxBodyBytes:   defaultMaxBodyBytes,
	}, nil
}

// WithS3 validates and attaches object storage settings used for image uploads.
func (c *Config) WithS3(s3 S3Config) error {
	if s3.Bucket == "" {
		return fmt.Errorf("s3 bucket cannot be empty")
	}
	if s3.Region == "" {
		return fmt.Errorf("s3 region cannot be empty")
	}
	if s3.PublicURL == "" {
		return fmt.Errorf("s3 public url cannot be empty")
	}

	c.S3 = s3
	return nil
}
