package drift

import (
	"sort"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/livestate"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

// Declared is the subset of the declared topology that can be observed on
// live resources.
type Declared struct {
	VPCCIDR            string
	Subnets            map[string]string // logical ID -> CIDR
	Ingress            []livestate.Rule
	PrivateACL         string
	PrivateIngressCIDR string
	Database           DeclaredDatabase
}

// DeclaredDatabase is the declared instance configuration.
type DeclaredDatabase struct {
	EngineVersion      string
	Class              string
	AllocatedStorage   int32
	Port               int32
	MultiAZ            bool
	PubliclyAccessible bool
	DeletionProtection bool
	LogExports         []string
}

// FromTopology extracts the observable declarations of a built topology.
func FromTopology(t *topology.Topology, cfg *config.Config) Declared {
	d := Declared{
		VPCCIDR: t.Network.CIDR,
		Subnets: make(map[string]string),
		Ingress: []livestate.Rule{{
			Protocol: "tcp",
			FromPort: int32(cfg.Database.Port),
			ToPort:   int32(cfg.Database.Port),
			CIDR:     t.Network.CIDR,
		}},
		PrivateACL:         t.ACLs.Private.Handle.Name(),
		PrivateIngressCIDR: privateIngress(t.ACLs.Private),
		Database: DeclaredDatabase{
			EngineVersion:      cfg.Database.EngineVersion,
			Class:              cfg.Database.InstanceClass,
			AllocatedStorage:   int32(cfg.Database.AllocatedStorage),
			Port:               int32(cfg.Database.Port),
			MultiAZ:            cfg.Database.MultiAZ,
			PubliclyAccessible: cfg.Database.PubliclyAccessible,
			DeletionProtection: cfg.Database.DeletionProtection,
			LogExports:         sortedCopy(cfg.Database.LogExports),
		},
	}
	for _, sn := range append(append([]topology.Subnet(nil), t.Network.Public...), t.Network.Private...) {
		d.Subnets[sn.Handle.Name()] = sn.CIDR
	}
	return d
}

// privateIngress returns the CIDR of the declared inbound entry, already
// canonical, so that a host-bit form in the config compares equal to EC2.
func privateIngress(acl topology.ACL) string {
	for _, r := range acl.Rules {
		if !r.Egress {
			return r.CIDR
		}
	}
	return ""
}

// sortedCopy returns a sorted copy of original. Empty and nil lists are both
// returned as nil; RDS reports no exports as an absent list.
func sortedCopy(original []string) []string {
	if len(original) == 0 {
		return nil
	}
	out := make([]string, len(original))
	copy(out, original)
	sort.Strings(out)
	return out
}
