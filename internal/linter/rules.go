package linter

// Rules:
//
//	WRD001: Subnet ranges inside the VPC block and non-overlapping
//	WRD002: NACL rule numbers unique per direction within an ACL
//	WRD003: Private ACL ingress source inside the VPC block
//	WRD004: Private ACL ingress covers at least one subnet
//	WRD005: Database security group allows exactly TCP on the DB port from the VPC block
//	WRD006: Generated password is 16 characters and excludes / and @
//	WRD007: Publicly accessible database placed in private subnets
//	WRD008: Database has no deletion safety net
//	WRD009: DB subnet group references only private subnets
//	WRD010: DB subnet group spans at least two availability zones

import (
	"fmt"
	"strings"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/netplan"
)

// Rule is the interface for template audit rules.
type Rule interface {
	ID() string
	Description() string
	Check(t *wetwire.Template) []Issue
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		SubnetsInsideVPC{},
		UniqueACLRuleNumbers{},
		PrivateIngressInsideVPC{},
		PrivateIngressCoversSubnet{},
		DatabasePortFromVPC{},
		PasswordPolicy{},
		PublicDatabaseInPrivateSubnets{},
		DeletionSafetyNet{},
		SubnetGroupPrivateOnly{},
		SubnetGroupZones{},
	}
}

// SubnetsInsideVPC checks that every subnet lies in its VPC block and that
// subnets of one VPC do not overlap.
type SubnetsInsideVPC struct{}

func (r SubnetsInsideVPC) ID() string { return "WRD001" }
func (r SubnetsInsideVPC) Description() string {
	return "Subnet ranges must be inside the VPC block and must not overlap"
}

func (r SubnetsInsideVPC) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	byVPC := make(map[string][]string)
	cidrs := make(map[string]string)

	for _, name := range ofType(t, typeSubnet) {
		props := t.Resources[name].Properties
		cidr, ok := literal(props["CidrBlock"])
		if !ok {
			continue
		}
		vpc, block, ok := vpcCIDR(t, props["VpcId"])
		if !ok {
			continue
		}

		inside, err := netplan.Contains(block, cidr)
		switch {
		case err != nil:
			issues = append(issues, r.issue(name, fmt.Sprintf("unparseable range: %v", err)))
			continue
		case !inside:
			issues = append(issues, r.issue(name, fmt.Sprintf("subnet %s is outside VPC %s block %s", cidr, vpc, block)))
			continue
		}

		for _, other := range byVPC[vpc] {
			if overlap, _ := netplan.Overlaps(cidrs[other], cidr); overlap {
				issues = append(issues, r.issue(name, fmt.Sprintf("subnet %s overlaps %s (%s)", cidr, other, cidrs[other])))
			}
		}
		byVPC[vpc] = append(byVPC[vpc], name)
		cidrs[name] = cidr
	}
	return issues
}

func (r SubnetsInsideVPC) issue(resource, msg string) Issue {
	return Issue{Rule: r.ID(), Resource: resource, Message: msg, Severity: SeverityError,
		Suggestion: "Allocate subnet ranges sequentially from the VPC block"}
}

// UniqueACLRuleNumbers checks that entries of one ACL do not share a rule
// number in the same direction.
type UniqueACLRuleNumbers struct{}

func (r UniqueACLRuleNumbers) ID() string { return "WRD002" }
func (r UniqueACLRuleNumbers) Description() string {
	return "NACL rule numbers must be unique per direction within an ACL"
}

func (r UniqueACLRuleNumbers) Check(t *wetwire.Template) []Issue {
	type key struct {
		acl    string
		egress bool
		number int
	}

	var issues []Issue
	seen := make(map[key]string)
	for _, name := range ofType(t, typeNACLEntry) {
		props := t.Resources[name].Properties
		num, ok := number(props["RuleNumber"])
		if !ok {
			continue
		}
		egress, _ := boolean(props["Egress"])
		k := key{acl: refTarget(props["NetworkAclId"]), egress: egress, number: num}

		if prev, dup := seen[k]; dup {
			direction := "ingress"
			if egress {
				direction = "egress"
			}
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Resource:   name,
				Message:    fmt.Sprintf("%s rule number %d of %s is already used by %s", direction, num, k.acl, prev),
				Suggestion: "Give each entry in one direction its own rule number",
				Severity:   SeverityError,
			})
			continue
		}
		seen[k] = name
	}
	return issues
}

// PrivateIngressInsideVPC checks that ingress entries of private ACLs only
// admit addresses from inside the VPC block.
type PrivateIngressInsideVPC struct{}

func (r PrivateIngressInsideVPC) ID() string { return "WRD003" }
func (r PrivateIngressInsideVPC) Description() string {
	return "Private ACL ingress source range must be inside the VPC block"
}

func (r PrivateIngressInsideVPC) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, entry := range privateIngressEntries(t) {
		inside, err := netplan.Contains(entry.block, entry.cidr)
		if err == nil && inside {
			continue
		}
		issues = append(issues, Issue{
			Rule:       r.ID(),
			Resource:   entry.name,
			Message:    fmt.Sprintf("private ingress source %s is not inside VPC block %s", entry.cidr, entry.block),
			Suggestion: "Restrict private subnet ingress to a range of the VPC block",
			Severity:   SeverityError,
		})
	}
	return issues
}

// PrivateIngressCoversSubnet warns when a private ingress range admits
// traffic from none of the VPC's subnets.
type PrivateIngressCoversSubnet struct{}

func (r PrivateIngressCoversSubnet) ID() string { return "WRD004" }
func (r PrivateIngressCoversSubnet) Description() string {
	return "Private ACL ingress range should cover at least one subnet"
}

func (r PrivateIngressCoversSubnet) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, entry := range privateIngressEntries(t) {
		covered := false
		for _, name := range ofType(t, typeSubnet) {
			props := t.Resources[name].Properties
			if refTarget(props["VpcId"]) != entry.vpc {
				continue
			}
			cidr, ok := literal(props["CidrBlock"])
			if !ok {
				continue
			}
			if overlap, _ := netplan.Overlaps(entry.cidr, cidr); overlap {
				covered = true
				break
			}
		}
		if !covered {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Resource:   entry.name,
				Message:    fmt.Sprintf("private ingress source %s covers no subnet of %s", entry.cidr, entry.vpc),
				Suggestion: "Traffic from the VPC's own subnets is dropped at the private subnet boundary",
				Severity:   SeverityWarning,
			})
		}
	}
	return issues
}

type aclEntry struct {
	name  string
	cidr  string
	vpc   string
	block string
}

func privateIngressEntries(t *wetwire.Template) []aclEntry {
	private := privateACLs(t)
	var out []aclEntry
	for _, name := range ofType(t, typeNACLEntry) {
		props := t.Resources[name].Properties
		acl := refTarget(props["NetworkAclId"])
		if !private[acl] {
			continue
		}
		if egress, _ := boolean(props["Egress"]); egress {
			continue
		}
		cidr, ok := literal(props["CidrBlock"])
		if !ok {
			continue
		}
		aclDef, ok := t.Resources[acl]
		if !ok || aclDef.Type != typeNetworkACL {
			continue
		}
		vpc, block, ok := vpcCIDR(t, aclDef.Properties["VpcId"])
		if !ok {
			continue
		}
		out = append(out, aclEntry{name: name, cidr: cidr, vpc: vpc, block: block})
	}
	return out
}

// DatabasePortFromVPC checks that each security group of a DB instance has
// exactly one ingress rule: TCP on the database port from the VPC block.
type DatabasePortFromVPC struct{}

func (r DatabasePortFromVPC) ID() string { return "WRD005" }
func (r DatabasePortFromVPC) Description() string {
	return "Database security group must allow exactly TCP on the database port from the VPC block"
}

func (r DatabasePortFromVPC) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, db := range ofType(t, typeDBInstance) {
		props := t.Resources[db].Properties
		port := defaultMySQLPort
		if p, ok := number(props["Port"]); ok {
			port = p
		}

		for _, ref := range list(props["VPCSecurityGroups"]) {
			sg, _ := getAttTarget(ref)
			if sg == "" {
				sg = refTarget(ref)
			}
			def, ok := t.Resources[sg]
			if !ok || def.Type != typeSecurityGroup {
				continue
			}
			_, block, _ := vpcCIDR(t, def.Properties["VpcId"])
			for _, msg := range checkIngress(list(def.Properties["SecurityGroupIngress"]), port, block) {
				issues = append(issues, Issue{
					Rule:       r.ID(),
					Resource:   sg,
					Message:    msg,
					Suggestion: fmt.Sprintf("Allow only tcp/%d from the VPC block", port),
					Severity:   SeverityError,
				})
			}
		}
	}
	return issues
}

func checkIngress(rules []any, port int, block string) []string {
	if len(rules) != 1 {
		return []string{fmt.Sprintf("expected exactly 1 ingress rule, found %d", len(rules))}
	}
	rule, _ := rules[0].(map[string]any)

	var msgs []string
	if proto, _ := literal(rule["IpProtocol"]); proto != "tcp" && proto != "6" {
		msgs = append(msgs, fmt.Sprintf("ingress protocol is %v, want tcp", rule["IpProtocol"]))
	}
	from, _ := number(rule["FromPort"])
	to, _ := number(rule["ToPort"])
	if from != port || to != port {
		msgs = append(msgs, fmt.Sprintf("ingress ports are %d-%d, want %d", from, to, port))
	}
	if cidr, ok := literal(rule["CidrIp"]); !ok || (block != "" && cidr != block) {
		msgs = append(msgs, fmt.Sprintf("ingress source is %v, want VPC block %s", rule["CidrIp"], block))
	}
	return msgs
}

// PasswordPolicy checks generated secrets against the password policy.
type PasswordPolicy struct{}

func (r PasswordPolicy) ID() string { return "WRD006" }
func (r PasswordPolicy) Description() string {
	return "Generated password must be 16 characters and exclude / and @"
}

func (r PasswordPolicy) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typeSecret) {
		gen, ok := t.Resources[name].Properties["GenerateSecretString"].(map[string]any)
		if !ok {
			continue
		}
		add := func(msg string) {
			issues = append(issues, Issue{Rule: r.ID(), Resource: name, Message: msg, Severity: SeverityError,
				Suggestion: fmt.Sprintf("Set PasswordLength %d and ExcludeCharacters %q", requiredPwdLength, requiredPwdExclude)})
		}

		if n, ok := number(gen["PasswordLength"]); !ok || n != requiredPwdLength {
			add(fmt.Sprintf("password length is %v, want %d", gen["PasswordLength"], requiredPwdLength))
		}
		excluded, _ := literal(gen["ExcludeCharacters"])
		for _, c := range requiredPwdExclude {
			if !strings.ContainsRune(excluded, c) {
				add(fmt.Sprintf("password may contain %q", c))
			}
		}
	}
	return issues
}

// PublicDatabaseInPrivateSubnets warns about the contradictory combination of
// PubliclyAccessible with a private-only subnet group.
type PublicDatabaseInPrivateSubnets struct{}

func (r PublicDatabaseInPrivateSubnets) ID() string { return "WRD007" }
func (r PublicDatabaseInPrivateSubnets) Description() string {
	return "Publicly accessible database should not be placed in private subnets"
}

func (r PublicDatabaseInPrivateSubnets) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, db := range ofType(t, typeDBInstance) {
		props := t.Resources[db].Properties
		if public, _ := boolean(props["PubliclyAccessible"]); !public {
			continue
		}
		_, subnets := subnetGroupSubnets(t, props)
		if len(subnets) == 0 || !allPrivate(t, subnets) {
			continue
		}
		issues = append(issues, Issue{
			Rule:       r.ID(),
			Resource:   db,
			Message:    "instance is publicly accessible but placed in private subnets; it gets a public DNS name with no route to it",
			Suggestion: "Set PubliclyAccessible to false, or place the instance in public subnets",
			Severity:   SeverityWarning,
		})
	}
	return issues
}

// DeletionSafetyNet warns when a DB instance has deletion protection off and
// an explicit Delete policy, so removal destroys the data.
type DeletionSafetyNet struct{}

func (r DeletionSafetyNet) ID() string { return "WRD008" }
func (r DeletionSafetyNet) Description() string {
	return "Database should have deletion protection or a Retain/Snapshot deletion policy"
}

func (r DeletionSafetyNet) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, db := range ofType(t, typeDBInstance) {
		def := t.Resources[db]
		if protected, _ := boolean(def.Properties["DeletionProtection"]); protected {
			continue
		}
		// Without an explicit policy the engine snapshots DB instances.
		if def.DeletionPolicy != wetwire.DeletionPolicyDelete {
			continue
		}
		issues = append(issues, Issue{
			Rule:       r.ID(),
			Resource:   db,
			Message:    "deletion protection is off and DeletionPolicy is Delete; removal or replacement destroys the data",
			Suggestion: "Enable deletion protection or use DeletionPolicy Snapshot",
			Severity:   SeverityWarning,
		})
	}
	return issues
}

// SubnetGroupPrivateOnly checks that DB subnet groups only reference subnets
// tagged Private.
type SubnetGroupPrivateOnly struct{}

func (r SubnetGroupPrivateOnly) ID() string { return "WRD009" }
func (r SubnetGroupPrivateOnly) Description() string {
	return "DB subnet group must reference only subnets tagged Private"
}

func (r SubnetGroupPrivateOnly) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, group := range ofType(t, typeDBSubnetGroup) {
		for _, id := range list(t.Resources[group].Properties["SubnetIds"]) {
			name := refTarget(id)
			subnet, ok := t.Resources[name]
			if !ok || subnet.Type != typeSubnet {
				continue
			}
			if kind := tagValue(subnet.Properties, subnetTypeTag); kind != subnetTypePrivate {
				issues = append(issues, Issue{
					Rule:       r.ID(),
					Resource:   group,
					Message:    fmt.Sprintf("subnet %s is tagged %q, want %q", name, kind, subnetTypePrivate),
					Suggestion: "Build the subnet group from the private subnets only",
					Severity:   SeverityError,
				})
			}
		}
	}
	return issues
}

// SubnetGroupZones checks that every DB subnet group covers at least two
// availability zones. RDS rejects a group in one zone even for a single-AZ
// instance.
type SubnetGroupZones struct{}

func (r SubnetGroupZones) ID() string { return "WRD010" }
func (r SubnetGroupZones) Description() string {
	return "DB subnet group must span at least two availability zones"
}

func (r SubnetGroupZones) Check(t *wetwire.Template) []Issue {
	var issues []Issue
	for _, group := range ofType(t, typeDBSubnetGroup) {
		add := func(msg string) {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Resource:   group,
				Message:    msg,
				Suggestion: fmt.Sprintf("Place the group's subnets in at least %d availability zones", minSubnetGroupZones),
				Severity:   SeverityError,
			})
		}

		subnets := list(t.Resources[group].Properties["SubnetIds"])
		if len(subnets) < minSubnetGroupZones {
			add(fmt.Sprintf("subnet group references %d subnet(s), want at least %d in distinct zones", len(subnets), minSubnetGroupZones))
			continue
		}

		zones, resolved := subnetZones(t, subnets)
		if resolved && len(zones) < minSubnetGroupZones {
			add(fmt.Sprintf("all %d subnets are in availability zone %s", len(subnets), zones[0]))
		}
	}
	return issues
}

func allPrivate(t *wetwire.Template, subnets []any) bool {
	for _, id := range subnets {
		subnet, ok := t.Resources[refTarget(id)]
		if !ok || tagValue(subnet.Properties, subnetTypeTag) != subnetTypePrivate {
			return false
		}
	}
	return true
}
