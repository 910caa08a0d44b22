// Package awssdk loads AWS configuration shared by the DynamoDB store and the
// CloudFormation provisioner.
package awssdk

import (
	"context"
	"fmt"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// LoadDefault loads the default AWS configuration for the given region using the
// standard environment/credentials chain.
func LoadDefault(ctx context.Context, region string) (awsv2.Config, error) {
	if region == "" {
		return awsconfig.LoadDefaultConfig(ctx)
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
}

// PartitionForRegion derives the AWS partition from a region name.
func PartitionForRegion(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	default:
		return "aws"
	}
}

// SNSTopicARN builds the ARN of an SNS topic in the given account and region.
func SNSTopicARN(region, accountID, topic string) string {
	return fmt.Sprintf("arn:%s:sns:%s:%s:%s", PartitionForRegion(region), region, accountID, topic)
}
