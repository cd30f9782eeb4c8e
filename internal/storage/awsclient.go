package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSConfig selects how the AWS clients are built. EndpointURL points both
// services at a local emulator (DynamoDB Local, MinIO, LocalStack) for
// development; leave it empty in production.
type AWSConfig struct {
	Region          string
	Profile         string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// Clients bundles the AWS service clients the platform talks to.
type Clients struct {
	DynamoDB *dynamodb.Client
	S3       *s3.Client
}

// NewClients loads the AWS configuration and constructs the DynamoDB and
// S3 clients. Static credentials take precedence over a named profile;
// with neither set the default provider chain applies.
func NewClients(ctx context.Context, cfg AWSConfig) (*Clients, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	} else if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.EndpointURL))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Emulators serve buckets on paths, not subdomains.
		if cfg.EndpointURL != "" {
			o.UsePathStyle = true
		}
	})

	return &Clients{
		DynamoDB: dynamodb.NewFromConfig(awsCfg),
		S3:       s3Client,
	}, nil
}
