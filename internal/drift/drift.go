// Package drift compares the declared topology with the live state read by
// internal/livestate.
package drift

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/lex00/wetwire-rds-go/internal/livestate"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

// ErrUnsupportedAttribute is returned for an attribute no comparator handles.
var ErrUnsupportedAttribute = errors.New("unsupported drift attribute")

// Detail is one drifted attribute. Live is nil when the resource is missing.
type Detail struct {
	Attribute string `json:"attribute"`
	Resource  string `json:"resource"`
	Declared  any    `json:"declared"`
	Live      any    `json:"live"`
}

// Result is the outcome of a drift check.
type Result struct {
	HasDrift bool     `json:"has_drift"`
	Checked  []string `json:"checked"`
	Drifts   []Detail `json:"drifts,omitempty"`
}

// Comparator reports the drifted details of one attribute.
type Comparator func(d Declared, s *livestate.State) []Detail

// Attributes returns the names of all supported attributes, sorted.
func Attributes() []string {
	names := make([]string, 0, len(comparators()))
	for name := range comparators() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect compares declared with live. An empty attribute list checks every
// supported attribute.
func Detect(declared Declared, live *livestate.State, attributes []string) (*Result, error) {
	if live == nil {
		return nil, errors.New("live state is nil")
	}

	all := comparators()
	names := Attributes()
	if len(attributes) > 0 {
		names = names[:0]
		for _, attr := range attributes {
			name := normalizeAttributeName(attr)
			if _, ok := all[name]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedAttribute, attr)
			}
			names = append(names, name)
		}
	}

	result := &Result{Checked: names}
	for _, name := range names {
		for _, detail := range all[name](declared, live) {
			detail.Attribute = name
			result.Drifts = append(result.Drifts, detail)
		}
	}
	result.HasDrift = len(result.Drifts) > 0
	return result, nil
}

func comparators() map[string]Comparator {
	return map[string]Comparator{
		"vpc_cidr":               compareVPC,
		"subnet_cidrs":           compareSubnets,
		"security_group_ingress": compareIngress,
		"private_acl_ingress":    compareACL,
		"engine_version": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.EngineVersion, l.EngineVersion
		}),
		"instance_class": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.Class, l.Class
		}),
		"allocated_storage": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.AllocatedStorage, l.AllocatedStorage
		}),
		"port": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.Port, l.Port
		}),
		"multi_az": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.MultiAZ, l.MultiAZ
		}),
		"publicly_accessible": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.PubliclyAccessible, l.PubliclyAccessible
		}),
		"deletion_protection": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.DeletionProtection, l.DeletionProtection
		}),
		"log_exports": dbField(func(d DeclaredDatabase, l *livestate.DBInstance) (any, any) {
			return d.LogExports, sortedCopy(l.LogExports)
		}),
	}
}

func compareVPC(d Declared, s *livestate.State) []Detail {
	if s.VPC == nil {
		return []Detail{{Resource: topology.VPCLogicalID, Declared: d.VPCCIDR}}
	}
	if s.VPC.CIDR != d.VPCCIDR {
		return []Detail{{Resource: s.VPC.LogicalID, Declared: d.VPCCIDR, Live: s.VPC.CIDR}}
	}
	return nil
}

func compareSubnets(d Declared, s *livestate.State) []Detail {
	live := make(map[string]string, len(s.Subnets))
	for _, sn := range s.Subnets {
		live[sn.LogicalID] = sn.CIDR
	}

	var out []Detail
	for _, id := range sortedKeys(d.Subnets) {
		want := d.Subnets[id]
		got, ok := live[id]
		switch {
		case !ok:
			out = append(out, Detail{Resource: id, Declared: want})
		case got != want:
			out = append(out, Detail{Resource: id, Declared: want, Live: got})
		}
	}
	return out
}

func compareIngress(d Declared, s *livestate.State) []Detail {
	for _, sg := range s.SecurityGroups {
		if sg.LogicalID != topology.SecurityGroupLogicalID {
			continue
		}
		if !reflect.DeepEqual(sortedRules(d.Ingress), sortedRules(sg.Ingress)) {
			return []Detail{{Resource: sg.LogicalID, Declared: d.Ingress, Live: sg.Ingress}}
		}
		return nil
	}
	return []Detail{{Resource: topology.SecurityGroupLogicalID, Declared: d.Ingress}}
}

func compareACL(d Declared, s *livestate.State) []Detail {
	for _, acl := range s.NetworkACLs {
		if acl.LogicalID != d.PrivateACL {
			continue
		}
		for _, e := range acl.Entries {
			if e.Number == 100 && !e.Egress {
				if e.CIDR != d.PrivateIngressCIDR {
					return []Detail{{Resource: acl.LogicalID, Declared: d.PrivateIngressCIDR, Live: e.CIDR}}
				}
				return nil
			}
		}
		return []Detail{{Resource: acl.LogicalID, Declared: d.PrivateIngressCIDR}}
	}
	return []Detail{{Resource: d.PrivateACL, Declared: d.PrivateIngressCIDR}}
}

// dbField builds a comparator over one database field.
func dbField(values func(DeclaredDatabase, *livestate.DBInstance) (declared, live any)) Comparator {
	return func(d Declared, s *livestate.State) []Detail {
		if s.Database == nil {
			declared, _ := values(d.Database, &livestate.DBInstance{})
			return []Detail{{Resource: topology.DBInstanceLogicalID, Declared: declared}}
		}
		declared, live := values(d.Database, s.Database)
		if reflect.DeepEqual(declared, live) {
			return nil
		}
		return []Detail{{Resource: s.Database.LogicalID, Declared: declared, Live: live}}
	}
}

func sortedRules(rules []livestate.Rule) []livestate.Rule {
	out := append([]livestate.Rule(nil), rules...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeAttributeName accepts "engine-version", "Engine Version" and
// "engine_version" alike.
func normalizeAttributeName(attr string) string {
	normalized := strings.ToLower(strings.TrimSpace(attr))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	aliases := map[string]string{
		"vpc":     "vpc_cidr",
		"subnets": "subnet_cidrs",
		"sg":      "security_group_ingress",
		"class":   "instance_class",
		"version": "engine_version",
		"logs":    "log_exports",
	}
	if replacement, ok := aliases[normalized]; ok {
		return replacement
	}
	return normalized
}
