package livestate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/sync/errgroup"
)

// Tags CloudFormation applies to every resource it creates.
const (
	TagStackName = "aws:cloudformation:stack-name"
	TagLogicalID = "aws:cloudformation:logical-id"
)

// ErrAccountMismatch is returned when the credentials belong to a different
// account than the configured deployment target.
var ErrAccountMismatch = errors.New("caller account does not match target account")

// VPC is the live VPC.
type VPC struct {
	ID        string
	LogicalID string
	CIDR      string
}

// Subnet is a live subnet.
type Subnet struct {
	ID        string
	LogicalID string
	CIDR      string
	Zone      string
}

// Rule is a security group ingress permission for one source range.
type Rule struct {
	Protocol string
	FromPort int32
	ToPort   int32
	CIDR     string
}

// SecurityGroup is a live security group.
type SecurityGroup struct {
	ID        string
	LogicalID string
	Ingress   []Rule
}

// ACLEntry is a live NACL entry.
type ACLEntry struct {
	Number   int32
	Egress   bool
	Protocol string
	CIDR     string
	Action   string
}

// NetworkACL is a live network ACL.
type NetworkACL struct {
	ID        string
	LogicalID string
	Entries   []ACLEntry
	Subnets   []string
}

// DBInstance is the live database instance.
type DBInstance struct {
	Identifier         string
	LogicalID          string
	Engine             string
	EngineVersion      string
	Class              string
	AllocatedStorage   int32
	Port               int32
	MultiAZ            bool
	PubliclyAccessible bool
	DeletionProtection bool
	LogExports         []string
	SubnetIDs          []string
}

// State is the live topology of one stack. Slices are sorted by logical ID.
type State struct {
	Account        string
	VPC            *VPC
	Subnets        []Subnet
	SecurityGroups []SecurityGroup
	NetworkACLs    []NetworkACL
	Database       *DBInstance
}

// Account returns the account of the caller credentials.
func (c *Client) Account(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", classify(fmt.Errorf("get caller identity: %w", err), "STS", "")
	}
	return aws.ToString(out.Account), nil
}

// Read loads the live state of stackName. When account is not empty the
// caller credentials must belong to it.
func (c *Client) Read(ctx context.Context, stackName, account string) (*State, error) {
	caller, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	if account != "" && caller != account {
		return nil, fmt.Errorf("%w: caller %s, target %s", ErrAccountMismatch, caller, account)
	}

	state := &State{Account: caller}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vpc, err := c.readVPC(gctx, stackName)
		state.VPC = vpc
		return err
	})
	g.Go(func() error {
		subnets, err := c.readSubnets(gctx, stackName)
		state.Subnets = subnets
		return err
	})
	g.Go(func() error {
		groups, err := c.readSecurityGroups(gctx, stackName)
		state.SecurityGroups = groups
		return err
	})
	g.Go(func() error {
		acls, err := c.readNetworkACLs(gctx, stackName)
		state.NetworkACLs = acls
		return err
	})
	g.Go(func() error {
		db, err := c.readDatabase(gctx, stackName)
		state.Database = db
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("stack", stackName).Str("account", caller).
		Int("subnets", len(state.Subnets)).Int("security_groups", len(state.SecurityGroups)).
		Int("network_acls", len(state.NetworkACLs)).Bool("database", state.Database != nil).
		Msg("read live state")
	return state, nil
}

func stackFilter(stackName string) []ec2types.Filter {
	return []ec2types.Filter{
		{Name: aws.String("tag:" + TagStackName), Values: []string{stackName}},
	}
}

// CollectPages drains a paginator.
func CollectPages[Output any, Item any](
	ctx context.Context,
	hasMore func() bool,
	nextPage func(context.Context) (Output, error),
	extract func(Output) []Item,
) ([]Item, error) {
	var items []Item
	for hasMore() {
		page, err := nextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, extract(page)...)
	}
	return items, nil
}

func (c *Client) readVPC(ctx context.Context, stackName string) (*VPC, error) {
	p := ec2.NewDescribeVpcsPaginator(c.ec2, &ec2.DescribeVpcsInput{Filters: stackFilter(stackName)})
	vpcs, err := CollectPages(ctx, p.HasMorePages, func(ctx context.Context) (*ec2.DescribeVpcsOutput, error) {
		return p.NextPage(ctx)
	}, func(out *ec2.DescribeVpcsOutput) []ec2types.Vpc { return out.Vpcs })
	if err != nil {
		return nil, classify(fmt.Errorf("describe vpcs: %w", err), "EC2::VPC", "")
	}
	if len(vpcs) == 0 {
		return nil, nil
	}
	if len(vpcs) > 1 {
		return nil, fmt.Errorf("stack %s owns %d VPCs, expected one", stackName, len(vpcs))
	}
	v := vpcs[0]
	return &VPC{
		ID:        aws.ToString(v.VpcId),
		LogicalID: ec2Tag(v.Tags, TagLogicalID),
		CIDR:      aws.ToString(v.CidrBlock),
	}, nil
}

func (c *Client) readSubnets(ctx context.Context, stackName string) ([]Subnet, error) {
	p := ec2.NewDescribeSubnetsPaginator(c.ec2, &ec2.DescribeSubnetsInput{Filters: stackFilter(stackName)})
	subnets, err := CollectPages(ctx, p.HasMorePages, func(ctx context.Context) (*ec2.DescribeSubnetsOutput, error) {
		return p.NextPage(ctx)
	}, func(out *ec2.DescribeSubnetsOutput) []ec2types.Subnet { return out.Subnets })
	if err != nil {
		return nil, classify(fmt.Errorf("describe subnets: %w", err), "EC2::Subnet", "")
	}

	out := make([]Subnet, 0, len(subnets))
	for _, s := range subnets {
		out = append(out, Subnet{
			ID:        aws.ToString(s.SubnetId),
			LogicalID: ec2Tag(s.Tags, TagLogicalID),
			CIDR:      aws.ToString(s.CidrBlock),
			Zone:      aws.ToString(s.AvailabilityZone),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalID < out[j].LogicalID })
	return out, nil
}

func (c *Client) readSecurityGroups(ctx context.Context, stackName string) ([]SecurityGroup, error) {
	p := ec2.NewDescribeSecurityGroupsPaginator(c.ec2, &ec2.DescribeSecurityGroupsInput{Filters: stackFilter(stackName)})
	groups, err := CollectPages(ctx, p.HasMorePages, func(ctx context.Context) (*ec2.DescribeSecurityGroupsOutput, error) {
		return p.NextPage(ctx)
	}, func(out *ec2.DescribeSecurityGroupsOutput) []ec2types.SecurityGroup { return out.SecurityGroups })
	if err != nil {
		return nil, classify(fmt.Errorf("describe security groups: %w", err), "EC2::SecurityGroup", "")
	}

	out := make([]SecurityGroup, 0, len(groups))
	for _, g := range groups {
		sg := SecurityGroup{
			ID:        aws.ToString(g.GroupId),
			LogicalID: ec2Tag(g.Tags, TagLogicalID),
		}
		for _, perm := range g.IpPermissions {
			for _, r := range perm.IpRanges {
				sg.Ingress = append(sg.Ingress, Rule{
					Protocol: aws.ToString(perm.IpProtocol),
					FromPort: aws.ToInt32(perm.FromPort),
					ToPort:   aws.ToInt32(perm.ToPort),
					CIDR:     aws.ToString(r.CidrIp),
				})
			}
		}
		out = append(out, sg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalID < out[j].LogicalID })
	return out, nil
}

func (c *Client) readNetworkACLs(ctx context.Context, stackName string) ([]NetworkACL, error) {
	p := ec2.NewDescribeNetworkAclsPaginator(c.ec2, &ec2.DescribeNetworkAclsInput{Filters: stackFilter(stackName)})
	acls, err := CollectPages(ctx, p.HasMorePages, func(ctx context.Context) (*ec2.DescribeNetworkAclsOutput, error) {
		return p.NextPage(ctx)
	}, func(out *ec2.DescribeNetworkAclsOutput) []ec2types.NetworkAcl { return out.NetworkAcls })
	if err != nil {
		return nil, classify(fmt.Errorf("describe network acls: %w", err), "EC2::NetworkAcl", "")
	}

	out := make([]NetworkACL, 0, len(acls))
	for _, a := range acls {
		acl := NetworkACL{
			ID:        aws.ToString(a.NetworkAclId),
			LogicalID: ec2Tag(a.Tags, TagLogicalID),
		}
		for _, e := range a.Entries {
			acl.Entries = append(acl.Entries, ACLEntry{
				Number:   aws.ToInt32(e.RuleNumber),
				Egress:   aws.ToBool(e.Egress),
				Protocol: aws.ToString(e.Protocol),
				CIDR:     aws.ToString(e.CidrBlock),
				Action:   string(e.RuleAction),
			})
		}
		for _, assoc := range a.Associations {
			acl.Subnets = append(acl.Subnets, aws.ToString(assoc.SubnetId))
		}
		sort.Strings(acl.Subnets)
		out = append(out, acl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalID < out[j].LogicalID })
	return out, nil
}

// readDatabase scans instances for the stack tag. DescribeDBInstances has no
// tag filter, so every page is read.
func (c *Client) readDatabase(ctx context.Context, stackName string) (*DBInstance, error) {
	p := rds.NewDescribeDBInstancesPaginator(c.rds, &rds.DescribeDBInstancesInput{})
	instances, err := CollectPages(ctx, p.HasMorePages, func(ctx context.Context) (*rds.DescribeDBInstancesOutput, error) {
		return p.NextPage(ctx)
	}, func(out *rds.DescribeDBInstancesOutput) []rdstypes.DBInstance { return out.DBInstances })
	if err != nil {
		return nil, classify(fmt.Errorf("describe db instances: %w", err), "RDS::DBInstance", "")
	}

	for _, db := range instances {
		if rdsTag(db.TagList, TagStackName) != stackName {
			continue
		}
		return toDBInstance(db), nil
	}
	return nil, nil
}

func toDBInstance(db rdstypes.DBInstance) *DBInstance {
	out := &DBInstance{
		Identifier:         aws.ToString(db.DBInstanceIdentifier),
		LogicalID:          rdsTag(db.TagList, TagLogicalID),
		Engine:             aws.ToString(db.Engine),
		EngineVersion:      aws.ToString(db.EngineVersion),
		Class:              aws.ToString(db.DBInstanceClass),
		AllocatedStorage:   aws.ToInt32(db.AllocatedStorage),
		MultiAZ:            aws.ToBool(db.MultiAZ),
		PubliclyAccessible: aws.ToBool(db.PubliclyAccessible),
		DeletionProtection: aws.ToBool(db.DeletionProtection),
		LogExports:         append([]string(nil), db.EnabledCloudwatchLogsExports...),
	}
	if db.Endpoint != nil {
		out.Port = aws.ToInt32(db.Endpoint.Port)
	}
	if db.DBSubnetGroup != nil {
		for _, s := range db.DBSubnetGroup.Subnets {
			out.SubnetIDs = append(out.SubnetIDs, aws.ToString(s.SubnetIdentifier))
		}
	}
	sort.Strings(out.LogExports)
	sort.Strings(out.SubnetIDs)
	return out
}

func ec2Tag(tags []ec2types.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

func rdsTag(tags []rdstypes.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}
