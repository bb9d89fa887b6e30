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

// ErrDuplicateRule is returned when two entries of one ACL share a rule
// number in the same direction.
var ErrDuplicateRule = errors.New("duplicate NACL rule number")

// AnyProtocol is the NACL protocol number meaning all traffic.
const AnyProtocol = -1

// ACLRule is one NACL entry.
type ACLRule struct {
	LogicalID string
	Number    int
	Egress    bool
	CIDR      string
}

// ACL is a network ACL of one subnet class. Subnets lists the subnets it is
// associated with; the rest of the class keeps the VPC default ACL.
type ACL struct {
	Handle  stack.Handle
	Kind    string
	Rules   []ACLRule
	Subnets []Subnet
}

// ACLs holds the public and private network ACLs.
type ACLs struct {
	Public  ACL
	Private ACL
}

// checkRules enforces unique rule numbers per direction.
func checkRules(rules []ACLRule) error {
	seen := map[bool]map[int]string{false: {}, true: {}}
	var errs []error
	for _, r := range rules {
		if prev, ok := seen[r.Egress][r.Number]; ok {
			errs = append(errs, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateRule, r.Number, prev, r.LogicalID))
			continue
		}
		seen[r.Egress][r.Number] = r.LogicalID
	}
	return errors.Join(errs...)
}

// declareACLs declares the public ACL (allow all both ways) and the private
// ACL (ingress only from privateIngress, egress open). With attachment
// config.ACLAttachFirst each ACL is associated with the first subnet of its
// class only; config.ACLAttachAll associates every subnet.
func declareACLs(s *stack.Stack, net *Network, privateIngress, attachment string) (*ACLs, error) {
	if err := netplan.MustContain(net.CIDR, privateIngress); err != nil {
		return nil, fmt.Errorf("private ACL ingress: %w", err)
	}
	privateIngress, err := netplan.Canonical(privateIngress)
	if err != nil {
		return nil, fmt.Errorf("private ACL ingress: %w", err)
	}

	attached := func(subnets []Subnet) []Subnet {
		if attachment == config.ACLAttachAll || len(subnets) == 0 {
			return subnets
		}
		return subnets[:1]
	}

	public, err := declareACL(s, net, SubnetPublic, attached(net.Public), []ACLRule{
		{LogicalID: "PublicInboundRule", Number: 100, CIDR: "0.0.0.0/0"},
		{LogicalID: "PublicOutboundRule", Number: 100, Egress: true, CIDR: "0.0.0.0/0"},
	})
	if err != nil {
		return nil, err
	}

	private, err := declareACL(s, net, SubnetPrivate, attached(net.Private), []ACLRule{
		{LogicalID: "PrivateInboundRule", Number: 100, CIDR: privateIngress},
		{LogicalID: "PrivateOutboundRule", Number: 100, Egress: true, CIDR: "0.0.0.0/0"},
	})
	if err != nil {
		return nil, err
	}

	return &ACLs{Public: public, Private: private}, nil
}

func declareACL(s *stack.Stack, net *Network, kind string, subnets []Subnet, rules []ACLRule) (ACL, error) {
	if err := checkRules(rules); err != nil {
		return ACL{}, fmt.Errorf("%s ACL: %w", kind, err)
	}

	id := fmt.Sprintf("%s%sSubnetNACL", VPCLogicalID, kind)
	acl := ACL{Kind: kind, Rules: rules, Subnets: subnets}
	acl.Handle = s.Add(id, &ec2.NetworkAcl{
		VpcId: net.VPC.Ref(),
		Tags:  intrinsics.Tags("Name", s.Name()+"/"+id),
	})

	for _, r := range rules {
		s.Add(r.LogicalID, &ec2.NetworkAclEntry{
			NetworkAclId: acl.Handle.Ref(),
			RuleNumber:   r.Number,
			Protocol:     AnyProtocol,
			RuleAction:   "allow",
			Egress:       r.Egress,
			CidrBlock:    r.CIDR,
		})
	}

	for i, sn := range subnets {
		s.Add(fmt.Sprintf("%sAssociation%d", id, i+1), &ec2.SubnetNetworkAclAssociation{
			NetworkAclId: acl.Handle.Ref(),
			SubnetId:     sn.Handle.Ref(),
		})
	}

	return acl, nil
}
