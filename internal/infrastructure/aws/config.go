package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type AWSConfig struct {
	Region   string
	DynamoDB *dynamodb.Client
}

// NewAWSConfig loads the default credential chain for region. A non-empty
// dynamoEndpoint points the DynamoDB client at a local or proxied endpoint.
func NewAWSConfig(ctx context.Context, region, dynamoEndpoint string) (*AWSConfig, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return &AWSConfig{
		Region: region,
		DynamoDB: dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if dynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(dynamoEndpoint)
			}
		}),
	}, nil
}
