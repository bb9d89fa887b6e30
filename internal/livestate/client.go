// Package livestate reads the deployed RDS topology through the AWS SDK.
//
// All calls are read-only. Resources are located through the tags
// CloudFormation stamps on everything it creates, so no physical IDs need to
// be known in advance.
package livestate

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
)

// EC2API is the subset of the EC2 client used for reads.
type EC2API interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeNetworkAcls(ctx context.Context, params *ec2.DescribeNetworkAclsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkAclsOutput, error)
}

// RDSAPI is the subset of the RDS client used for reads.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// STSAPI resolves the caller account.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client reads live state for one stack.
type Client struct {
	ec2    EC2API
	rds    RDSAPI
	sts    STSAPI
	logger zerolog.Logger
}

func newRetryer() aws.Retryer {
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = 5
		o.MaxBackoff = 30 * time.Second
		o.Backoff = retry.NewExponentialJitterBackoff(o.MaxBackoff)
		o.RateLimiter = ratelimit.None
	})
}

// NewClient loads the default AWS configuration for region and builds the
// service clients.
func NewClient(ctx context.Context, region string, logger zerolog.Logger) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(newRetryer),
	)
	if err != nil {
		return nil, classify(fmt.Errorf("unable to load AWS SDK config: %w", err), "", "")
	}

	return NewWithClients(ec2.NewFromConfig(cfg), rds.NewFromConfig(cfg), sts.NewFromConfig(cfg), logger), nil
}

// NewWithClients builds a Client over provided service clients.
func NewWithClients(ec2Client EC2API, rdsClient RDSAPI, stsClient STSAPI, logger zerolog.Logger) *Client {
	return &Client{ec2: ec2Client, rds: rdsClient, sts: stsClient, logger: logger}
}
