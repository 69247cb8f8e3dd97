package publish

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Credentials configure S3 clients built by NewClientFactory. Empty keys fall
// back to the default AWS credential chain.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewClientFactory returns a ClientFactory producing S3 clients against a
// custom endpoint (R2, MinIO) or AWS itself when the endpoint is empty.
func NewClientFactory(creds Credentials) ClientFactory {
	return func(ctx context.Context, endpoint string) (ObjectPutter, error) {
		region := creds.Region
		if region == "" {
			region = "auto"
		}
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
		if creds.AccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			o.UsePathStyle = creds.UsePathStyle
		}), nil
	}
}
