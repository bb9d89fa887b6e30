package topology

import (
	"errors"
	"fmt"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/netplan"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/intrinsics"
	"github.com/lex00/wetwire-rds-go/resources/ec2"
)

// VPCLogicalID is the logical ID of the VPC and the prefix of every network
// resource.
const VPCLogicalID = "RDSVPC"

// MinZones is the number of availability zones an RDS subnet group must
// cover, whether or not the instance is Multi-AZ.
const MinZones = 2

// ErrTooFewZones is returned when the private subnets span fewer than
// MinZones availability zones.
var ErrTooFewZones = errors.New("DB subnet group must cover at least 2 availability zones")

// Subnet tag values used to classify subnets.
const (
	SubnetTypeTag = "SubnetType"
	SubnetPublic  = "Public"
	SubnetPrivate = "Private"
)

// Subnet is a declared subnet with its routing.
type Subnet struct {
	Handle       stack.Handle
	Kind         string
	CIDR         string
	Zone         int
	RouteTable   stack.Handle
	DefaultRoute stack.Handle
}

// Network is the declared VPC.
type Network struct {
	VPC         stack.Handle
	CIDR        string
	Public      []Subnet
	Private     []Subnet
	NATGateways []stack.Handle
}

// PrivateSubnetRefs returns Refs to the private subnets.
func (n *Network) PrivateSubnetRefs() []any {
	refs := make([]any, len(n.Private))
	for i, sn := range n.Private {
		refs[i] = sn.Handle.Ref()
	}
	return refs
}

// PrivateDefaultRoutes returns the default route handles of the private subnets.
func (n *Network) PrivateDefaultRoutes() []stack.Handle {
	routes := make([]stack.Handle, len(n.Private))
	for i, sn := range n.Private {
		routes[i] = sn.DefaultRoute
	}
	return routes
}

// declareNetwork declares the VPC, one public and one private subnet per zone,
// the internet gateway, the NAT gateways and all routing.
func declareNetwork(s *stack.Stack, cfg config.NetworkConfig) (*Network, error) {
	plan, err := netplan.Allocate(cfg.CIDR, cfg.MaxAZs, cfg.SubnetPrefix)
	if err != nil {
		return nil, fmt.Errorf("planning network: %w", err)
	}
	if len(plan.Private) < MinZones {
		return nil, fmt.Errorf("planning network: %w: %d private subnets", ErrTooFewZones, len(plan.Private))
	}
	if cfg.NATGateways < 1 || cfg.NATGateways > len(plan.Public) {
		return nil, fmt.Errorf("planning network: %d NAT gateways for %d public subnets", cfg.NATGateways, len(plan.Public))
	}

	name := func(suffix string) any {
		return s.Name() + "/" + VPCLogicalID + suffix
	}

	net := &Network{CIDR: plan.VPC}
	net.VPC = s.Add(VPCLogicalID, &ec2.VPC{
		CidrBlock:          plan.VPC,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		InstanceTenancy:    "default",
		Tags:               intrinsics.Tags("Name", name("")),
	})

	igw := s.Add(VPCLogicalID+"IGW", &ec2.InternetGateway{
		Tags: intrinsics.Tags("Name", name("")),
	})
	attachment := s.Add(VPCLogicalID+"VPCGW", &ec2.VPCGatewayAttachment{
		VpcId:             net.VPC.Ref(),
		InternetGatewayId: igw.Ref(),
	})

	for i, cidr := range plan.Public {
		sn := declareSubnet(s, net.VPC, SubnetPublic, i, cidr)
		sn.DefaultRoute = s.Add(sn.Handle.Name()+"DefaultRoute", &ec2.Route{
			RouteTableId:         sn.RouteTable.Ref(),
			DestinationCidrBlock: "0.0.0.0/0",
			GatewayId:            igw.Ref(),
		}, stack.DependsOn(attachment))
		net.Public = append(net.Public, sn)
	}

	for i := 0; i < cfg.NATGateways; i++ {
		host := net.Public[i].Handle
		eip := s.Add(host.Name()+"EIP", &ec2.EIP{
			Domain: "vpc",
			Tags:   intrinsics.Tags("Name", name(fmt.Sprintf("/PublicSubnet%d", i+1))),
		})
		nat := s.Add(host.Name()+"NATGateway", &ec2.NatGateway{
			AllocationId: eip.Attr("AllocationId"),
			SubnetId:     host.Ref(),
			Tags:         intrinsics.Tags("Name", name(fmt.Sprintf("/PublicSubnet%d", i+1))),
		}, stack.DependsOn(net.Public[i].DefaultRoute))
		net.NATGateways = append(net.NATGateways, nat)
	}

	for i, cidr := range plan.Private {
		sn := declareSubnet(s, net.VPC, SubnetPrivate, i, cidr)
		nat := net.NATGateways[i%len(net.NATGateways)]
		sn.DefaultRoute = s.Add(sn.Handle.Name()+"DefaultRoute", &ec2.Route{
			RouteTableId:         sn.RouteTable.Ref(),
			DestinationCidrBlock: "0.0.0.0/0",
			NatGatewayId:         nat.Ref(),
		})
		net.Private = append(net.Private, sn)
	}

	return net, nil
}

func declareSubnet(s *stack.Stack, vpc stack.Handle, kind string, zone int, cidr string) Subnet {
	id := fmt.Sprintf("%s%sSubnet%d", VPCLogicalID, kind, zone+1)
	tagName := fmt.Sprintf("%s/%s/%sSubnet%d", s.Name(), VPCLogicalID, kind, zone+1)

	sn := Subnet{Kind: kind, CIDR: cidr, Zone: zone}
	sn.Handle = s.Add(id, &ec2.Subnet{
		VpcId:               vpc.Ref(),
		CidrBlock:           cidr,
		AvailabilityZone:    intrinsics.Select{Index: zone, List: intrinsics.GetAZs{}},
		MapPublicIpOnLaunch: kind == SubnetPublic,
		Tags:                intrinsics.Tags("Name", tagName, SubnetTypeTag, kind),
	})
	sn.RouteTable = s.Add(id+"RouteTable", &ec2.RouteTable{
		VpcId: vpc.Ref(),
		Tags:  intrinsics.Tags("Name", tagName),
	})
	s.Add(id+"RouteTableAssociation", &ec2.SubnetRouteTableAssociation{
		RouteTableId: sn.RouteTable.Ref(),
		SubnetId:     sn.Handle.Ref(),
	})
	return sn
}
