// Package fetcher reads security groups from EC2, optionally across several
// accounts through assumed roles.
package fetcher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"vpc-visualizer/internal/config"
	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/parser"
)

// DefaultAccount names the account read with the base credentials when no
// accounts are configured.
const DefaultAccount = "default"

// DescribeSecurityGroupsAPI is the subset of the EC2 client the fetcher uses.
type DescribeSecurityGroupsAPI interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}

// CallerIdentityAPI is the subset of the STS client used to check credentials.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Account pairs an account id with the EC2 API used to read it.
type Account struct {
	ID  string
	API DescribeSecurityGroupsAPI
}

// Client fetches security groups from one region.
type Client struct {
	region   string
	accounts []Account
	identity CallerIdentityAPI
}

// New loads the default AWS configuration for cfg.Region and builds one EC2
// client per configured account. Accounts with a role ARN are read through
// STS assume-role credentials.
func New(ctx context.Context, cfg config.AWSConfig) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	base, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, vverrors.Wrap(vverrors.KindFetch, err, "failed to load AWS configuration")
	}

	stsClient := sts.NewFromConfig(base)

	if len(cfg.Accounts) == 0 {
		c := NewWithAPIs(base.Region, Account{ID: DefaultAccount, API: ec2.NewFromConfig(base)})
		c.identity = stsClient
		return c, nil
	}

	accounts := make([]Account, 0, len(cfg.Accounts))
	for _, acct := range cfg.Accounts {
		api := ec2.NewFromConfig(base, func(o *ec2.Options) {
			if acct.RoleARN != "" {
				o.Credentials = aws.NewCredentialsCache(assumeRoleProvider(stsClient, acct, cfg.SessionName))
			}
		})
		id := acct.ID
		if id == "" {
			id = acct.RoleARN
		}
		accounts = append(accounts, Account{ID: id, API: api})
	}

	c := NewWithAPIs(base.Region, accounts...)
	c.identity = stsClient
	return c, nil
}

func assumeRoleProvider(client stscreds.AssumeRoleAPIClient, acct config.AccountConfig, sessionName string) *stscreds.AssumeRoleProvider {
	return stscreds.NewAssumeRoleProvider(client, acct.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
		if acct.ExternalID != "" {
			o.ExternalID = aws.String(acct.ExternalID)
		}
	})
}

// NewWithAPIs builds a client from prebuilt EC2 APIs.
func NewWithAPIs(region string, accounts ...Account) *Client {
	return &Client{region: region, accounts: accounts}
}

// Region returns the region the client reads from.
func (c *Client) Region() string {
	return c.region
}

// AccountIDs returns the ids of the accounts the client reads, in order.
func (c *Client) AccountIDs() []string {
	ids := make([]string, len(c.accounts))
	for i, a := range c.accounts {
		ids[i] = a.ID
	}
	return ids
}

// SecurityGroups pages through DescribeSecurityGroups for every account and
// returns the combined batch.
func (c *Client) SecurityGroups(ctx context.Context) ([]parser.SecurityGroup, error) {
	var groups []parser.SecurityGroup
	for _, acct := range c.accounts {
		paginator := ec2.NewDescribeSecurityGroupsPaginator(acct.API, &ec2.DescribeSecurityGroupsInput{})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, vverrors.Wrap(vverrors.KindFetch, err, "failed to describe security groups in account %s", acct.ID)
			}
			for _, sg := range page.SecurityGroups {
				groups = append(groups, convertGroup(sg))
			}
		}
	}
	if groups == nil {
		groups = []parser.SecurityGroup{}
	}
	return groups, nil
}

// CallerIdentity returns the ARN of the base credentials.
func (c *Client) CallerIdentity(ctx context.Context) (string, error) {
	if c.identity == nil {
		return "", vverrors.New(vverrors.KindFetch, "no STS client configured")
	}
	out, err := c.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", vverrors.Wrap(vverrors.KindFetch, err, "failed to verify AWS credentials")
	}
	return aws.ToString(out.Arn), nil
}

// WithIdentity sets the STS API used by CallerIdentity.
func (c *Client) WithIdentity(api CallerIdentityAPI) *Client {
	c.identity = api
	return c
}

func (c *Client) String() string {
	return fmt.Sprintf("fetcher(region=%s, accounts=%d)", c.region, len(c.accounts))
}
