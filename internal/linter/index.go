package linter

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	wetwire "github.com/lex00/wetwire-rds-go"
)

// Resource types the rules inspect.
const (
	typeVPC             = "AWS::EC2::VPC"
	typeSubnet          = "AWS::EC2::Subnet"
	typeNetworkACL      = "AWS::EC2::NetworkAcl"
	typeNACLEntry       = "AWS::EC2::NetworkAclEntry"
	typeNACLAssoc       = "AWS::EC2::SubnetNetworkAclAssociation"
	typeSecurityGroup   = "AWS::EC2::SecurityGroup"
	typeSecret          = "AWS::SecretsManager::Secret"
	typeDBInstance      = "AWS::RDS::DBInstance"
	typeDBSubnetGroup   = "AWS::RDS::DBSubnetGroup"
	subnetTypeTag       = "SubnetType"
	subnetTypePrivate   = "Private"
	defaultMySQLPort    = 3306
	requiredPwdLength   = 16
	requiredPwdExclude  = "/@"
	minSubnetGroupZones = 2
)

// ofType returns the logical IDs of resources of type typ, sorted.
func ofType(t *wetwire.Template, typ string) []string {
	var names []string
	for name, def := range t.Resources {
		if def.Type == typ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// refTarget returns the logical ID of a {"Ref": X} value.
func refTarget(v any) string {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return ""
	}
	name, _ := m["Ref"].(string)
	return name
}

// getAttTarget returns the logical ID and attribute of an Fn::GetAtt value.
func getAttTarget(v any) (string, string) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", ""
	}
	switch args := m["Fn::GetAtt"].(type) {
	case []any:
		if len(args) == 2 {
			name, _ := args[0].(string)
			attr, _ := args[1].(string)
			return name, attr
		}
	case []string:
		if len(args) == 2 {
			return args[0], args[1]
		}
	case string:
		name, attr, _ := strings.Cut(args, ".")
		return name, attr
	}
	return "", ""
}

// literal returns v as a string when it is a plain string.
func literal(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// number accepts the numeric shapes produced by synthesis and by JSON/YAML
// decoding, plus numeric strings.
func number(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// boolean accepts bools and "true"/"false" strings.
func boolean(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	return false, false
}

func tagValue(props map[string]any, key string) string {
	tags, _ := props["Tags"].([]any)
	for _, tag := range tags {
		m, ok := tag.(map[string]any)
		if !ok {
			continue
		}
		if k, _ := m["Key"].(string); k == key {
			v, _ := m["Value"].(string)
			return v
		}
	}
	return ""
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// vpcCIDR resolves the literal block of the VPC referenced by ref.
func vpcCIDR(t *wetwire.Template, ref any) (string, string, bool) {
	vpc := refTarget(ref)
	def, ok := t.Resources[vpc]
	if !ok || def.Type != typeVPC {
		return vpc, "", false
	}
	cidr, ok := literal(def.Properties["CidrBlock"])
	return vpc, cidr, ok
}

// privateACLs returns the ACLs associated with at least one subnet tagged
// Private.
func privateACLs(t *wetwire.Template) map[string]bool {
	out := make(map[string]bool)
	for _, name := range ofType(t, typeNACLAssoc) {
		props := t.Resources[name].Properties
		subnet, ok := t.Resources[refTarget(props["SubnetId"])]
		if !ok || subnet.Type != typeSubnet {
			continue
		}
		if tagValue(subnet.Properties, subnetTypeTag) == subnetTypePrivate {
			out[refTarget(props["NetworkAclId"])] = true
		}
	}
	return out
}

// subnetGroupSubnets returns the subnet logical IDs of the DB subnet group a
// DB instance references, or nil when it cannot be resolved.
func subnetGroupSubnets(t *wetwire.Template, db map[string]any) (string, []any) {
	group := refTarget(db["DBSubnetGroupName"])
	def, ok := t.Resources[group]
	if !ok || def.Type != typeDBSubnetGroup {
		return "", nil
	}
	return group, list(def.Properties["SubnetIds"])
}

// subnetZones returns the distinct AvailabilityZone values of the given subnet
// references, sorted. Zones are compared in their JSON form so that literal
// names and Fn::Select over Fn::GetAZs both work. resolved is false when any
// reference is not a declared subnet with a zone.
func subnetZones(t *wetwire.Template, subnets []any) (zones []string, resolved bool) {
	seen := make(map[string]bool)
	for _, id := range subnets {
		subnet, ok := t.Resources[refTarget(id)]
		if !ok || subnet.Type != typeSubnet {
			return nil, false
		}
		az, ok := subnet.Properties["AvailabilityZone"]
		if !ok || az == nil {
			return nil, false
		}
		key, err := json.Marshal(az)
		if err != nil {
			return nil, false
		}
		if !seen[string(key)] {
			seen[string(key)] = true
			zones = append(zones, string(key))
		}
	}
	sort.Strings(zones)
	return zones, true
}
