package topology

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/netplan"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/internal/template"
)

func synth(t *testing.T, mutate func(*config.Config)) *wetwire.Template {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	tmpl, err := Synthesize(cfg, zerolog.Nop())
	require.NoError(t, err)
	return tmpl
}

func tagValue(props map[string]any, key string) any {
	tags, _ := props["Tags"].([]any)
	for _, tag := range tags {
		m, ok := tag.(map[string]any)
		if ok && m["Key"] == key {
			return m["Value"]
		}
	}
	return nil
}

func refName(v any) string {
	m, _ := v.(map[string]any)
	name, _ := m["Ref"].(string)
	return name
}

func TestSynthesize_ResourceInventory(t *testing.T) {
	tmpl := synth(t, nil)

	counts := map[string]int{}
	for _, def := range tmpl.Resources {
		counts[def.Type]++
	}

	assert.Equal(t, map[string]int{
		"AWS::EC2::VPC":                         1,
		"AWS::EC2::InternetGateway":             1,
		"AWS::EC2::VPCGatewayAttachment":        1,
		"AWS::EC2::Subnet":                      4,
		"AWS::EC2::RouteTable":                  4,
		"AWS::EC2::SubnetRouteTableAssociation": 4,
		"AWS::EC2::Route":                       4,
		"AWS::EC2::EIP":                         1,
		"AWS::EC2::NatGateway":                  1,
		"AWS::EC2::NetworkAcl":                  2,
		"AWS::EC2::NetworkAclEntry":             4,
		"AWS::EC2::SubnetNetworkAclAssociation": 2,
		"AWS::EC2::KeyPair":                     1,
		"AWS::EC2::SecurityGroup":               1,
		"AWS::SecretsManager::Secret":           1,
		"AWS::RDS::DBSubnetGroup":               1,
		"AWS::RDS::DBInstance":                  1,
	}, counts)

	assert.ElementsMatch(t,
		[]string{"VpcId", "DatabaseEndpointAddress", "DatabaseEndpointPort", "CredentialsSecretArn", "KeyPairName"},
		keys(tmpl.Outputs))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSynthesize_Deterministic(t *testing.T) {
	first, err := template.ToJSON(synth(t, nil))
	require.NoError(t, err)
	second, err := template.ToJSON(synth(t, nil))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestNetwork_SubnetLayout(t *testing.T) {
	tmpl := synth(t, nil)

	vpc := tmpl.Resources["RDSVPC"].Properties
	assert.Equal(t, "10.0.0.0/16", vpc["CidrBlock"])
	assert.Equal(t, true, vpc["EnableDnsSupport"])
	assert.Equal(t, true, vpc["EnableDnsHostnames"])

	expected := map[string]struct {
		cidr string
		kind string
	}{
		"RDSVPCPublicSubnet1":  {"10.0.0.0/24", SubnetPublic},
		"RDSVPCPublicSubnet2":  {"10.0.1.0/24", SubnetPublic},
		"RDSVPCPrivateSubnet1": {"10.0.2.0/24", SubnetPrivate},
		"RDSVPCPrivateSubnet2": {"10.0.3.0/24", SubnetPrivate},
	}

	var cidrs []string
	for id, want := range expected {
		props := tmpl.Resources[id].Properties
		assert.Equal(t, want.cidr, props["CidrBlock"], id)
		assert.Equal(t, want.kind, tagValue(props, SubnetTypeTag), id)
		cidrs = append(cidrs, want.cidr)
	}
	require.NoError(t, netplan.Verify("10.0.0.0/16", cidrs))
}

func TestNetwork_SingleNATServesAllPrivateSubnets(t *testing.T) {
	tmpl := synth(t, nil)

	for _, id := range []string{"RDSVPCPrivateSubnet1DefaultRoute", "RDSVPCPrivateSubnet2DefaultRoute"} {
		route := tmpl.Resources[id].Properties
		assert.Equal(t, "RDSVPCPublicSubnet1NATGateway", refName(route["NatGatewayId"]), id)
		assert.Equal(t, "0.0.0.0/0", route["DestinationCidrBlock"])
	}

	nat := tmpl.Resources["RDSVPCPublicSubnet1NATGateway"].Properties
	assert.Equal(t, "RDSVPCPublicSubnet1", refName(nat["SubnetId"]))
}

func TestNetwork_TwoNATGateways(t *testing.T) {
	tmpl := synth(t, func(c *config.Config) { c.Network.NATGateways = 2 })

	route := tmpl.Resources["RDSVPCPrivateSubnet2DefaultRoute"].Properties
	assert.Equal(t, "RDSVPCPublicSubnet2NATGateway", refName(route["NatGatewayId"]))
}

func TestACLs_PrivateIngressInsideVPC(t *testing.T) {
	tmpl := synth(t, nil)

	entry := tmpl.Resources["PrivateInboundRule"].Properties
	assert.Equal(t, "10.0.128.0/17", entry["CidrBlock"])
	assert.Equal(t, false, entry["Egress"])
	assert.Equal(t, 100, entry["RuleNumber"])
	assert.Equal(t, "RDSVPCPrivateSubnetNACL", refName(entry["NetworkAclId"]))

	inside, err := netplan.Contains("10.0.0.0/16", entry["CidrBlock"].(string))
	require.NoError(t, err)
	assert.True(t, inside)
}

func aclAssociations(tmpl *wetwire.Template) map[string][]string {
	assoc := map[string][]string{}
	for _, def := range tmpl.Resources {
		if def.Type != "AWS::EC2::SubnetNetworkAclAssociation" {
			continue
		}
		acl := refName(def.Properties["NetworkAclId"])
		assoc[acl] = append(assoc[acl], refName(def.Properties["SubnetId"]))
	}
	return assoc
}

func TestACLs_Attachment(t *testing.T) {
	tests := []struct {
		name        string
		attachment  string
		wantPublic  []string
		wantPrivate []string
	}{
		{
			name:        "first subnet of each class by default",
			attachment:  config.ACLAttachFirst,
			wantPublic:  []string{"RDSVPCPublicSubnet1"},
			wantPrivate: []string{"RDSVPCPrivateSubnet1"},
		},
		{
			name:        "every subnet of each class",
			attachment:  config.ACLAttachAll,
			wantPublic:  []string{"RDSVPCPublicSubnet1", "RDSVPCPublicSubnet2"},
			wantPrivate: []string{"RDSVPCPrivateSubnet1", "RDSVPCPrivateSubnet2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := synth(t, func(c *config.Config) { c.Network.ACLAttachment = tt.attachment })

			assoc := aclAssociations(tmpl)
			assert.ElementsMatch(t, tt.wantPublic, assoc["RDSVPCPublicSubnetNACL"])
			assert.ElementsMatch(t, tt.wantPrivate, assoc["RDSVPCPrivateSubnetNACL"])
		})
	}
}

func TestACLs_PrivateIngressCanonicalized(t *testing.T) {
	tmpl := synth(t, func(c *config.Config) { c.Network.PrivateIngressCIDR = "10.0.128.1/17" })

	assert.Equal(t, "10.0.128.0/17", tmpl.Resources["PrivateInboundRule"].Properties["CidrBlock"])
}

func TestACLs_IngressOutsideVPCFails(t *testing.T) {
	cfg := config.Default()
	cfg.Network.PrivateIngressCIDR = "192.168.0.0/17"

	_, err := Synthesize(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, netplan.ErrNotContained)
}

func TestCheckRules(t *testing.T) {
	require.NoError(t, checkRules([]ACLRule{
		{LogicalID: "In", Number: 100},
		{LogicalID: "Out", Number: 100, Egress: true},
	}))

	err := checkRules([]ACLRule{
		{LogicalID: "In", Number: 100},
		{LogicalID: "InAgain", Number: 100},
	})
	assert.ErrorIs(t, err, ErrDuplicateRule)
	assert.Contains(t, err.Error(), "In and InAgain")
}

func TestKeyPair(t *testing.T) {
	tmpl := synth(t, nil)

	kp := tmpl.Resources[KeyPairLogicalID]
	assert.Equal(t, "AWS::EC2::KeyPair", kp.Type)
	assert.Equal(t, "KeyPair-RDS-new", kp.Properties["KeyName"])
	assert.Empty(t, kp.DeletionPolicy)
}

func TestSecurityGroup_ExactlyMySQLFromVPC(t *testing.T) {
	tmpl := synth(t, nil)

	sg := tmpl.Resources[SecurityGroupLogicalID].Properties
	assert.Equal(t, "Security Group for RDS Instance", sg["GroupDescription"])

	ingress := sg["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 1)
	rule := ingress[0].(map[string]any)
	assert.Equal(t, "tcp", rule["IpProtocol"])
	assert.Equal(t, 3306, rule["FromPort"])
	assert.Equal(t, 3306, rule["ToPort"])
	assert.Equal(t, "10.0.0.0/16", rule["CidrIp"])
}

func TestSecret_PasswordPolicy(t *testing.T) {
	tmpl := synth(t, nil)

	secret := tmpl.Resources[SecretLogicalID].Properties
	assert.Equal(t, "RdsCredentials", secret["Name"])

	gen := secret["GenerateSecretString"].(map[string]any)
	assert.Equal(t, 16, gen["PasswordLength"])
	assert.Equal(t, "/@", gen["ExcludeCharacters"])
	assert.Equal(t, "password", gen["GenerateStringKey"])

	cfg := config.Default()
	user := HashUsername(cfg.Account, cfg.Region, cfg.StackName)
	assert.JSONEq(t, `{"username":"`+user+`","database":"MYSQLDatabase"}`, gen["SecretStringTemplate"].(string))
}

func TestSecret_StackIDStrategy(t *testing.T) {
	tmpl := synth(t, func(c *config.Config) { c.Secret.UsernameStrategy = config.UsernameStackID })

	gen := tmpl.Resources[SecretLogicalID].Properties["GenerateSecretString"].(map[string]any)
	assert.Contains(t, gen["SecretStringTemplate"], "Fn::Join")

	db := tmpl.Resources[DBInstanceLogicalID].Properties
	assert.Contains(t, db["MasterUsername"], "Fn::Join")
}

func TestDatabase_Properties(t *testing.T) {
	tmpl := synth(t, nil)

	def := tmpl.Resources[DBInstanceLogicalID]
	db := def.Properties
	assert.Equal(t, "mysql", db["Engine"])
	assert.Equal(t, "8.0.33", db["EngineVersion"])
	assert.Equal(t, "db.t3.small", db["DBInstanceClass"])
	assert.Equal(t, "MYSQL_Database", db["DBName"])
	assert.Equal(t, "3306", db["Port"])
	assert.Equal(t, true, db["MultiAZ"])
	assert.Equal(t, false, db["DeletionProtection"])
	assert.Equal(t, false, db["PubliclyAccessible"])
	assert.Equal(t, []any{"error", "general", "slowquery"}, db["EnableCloudwatchLogsExports"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"RdsSecurityGroup", "GroupId"}}, db["VPCSecurityGroups"].([]any)[0])
	assert.Equal(t, wetwire.DeletionPolicyDelete, def.DeletionPolicy)
	assert.Equal(t, []string{"RDSVPCPrivateSubnet1DefaultRoute", "RDSVPCPrivateSubnet2DefaultRoute"}, def.DependsOn)

	password := db["MasterUserPassword"].(map[string]any)
	join := password["Fn::Join"].([]any)
	parts := join[1].([]any)
	assert.Equal(t, "{{resolve:secretsmanager:", parts[0])
	assert.Equal(t, map[string]any{"Ref": SecretLogicalID}, parts[1])
	assert.Equal(t, ":SecretString:password::}}", parts[2])
}

func TestDatabase_PlacedInPrivateSubnetsRegardlessOfAccessibility(t *testing.T) {
	for _, public := range []bool{false, true} {
		tmpl := synth(t, func(c *config.Config) { c.Database.PubliclyAccessible = public })

		assert.Equal(t, public, tmpl.Resources[DBInstanceLogicalID].Properties["PubliclyAccessible"])

		group := tmpl.Resources[DBSubnetGroupLogicalID].Properties
		ids := group["SubnetIds"].([]any)
		require.Len(t, ids, 2)
		for _, id := range ids {
			subnet := tmpl.Resources[refName(id)].Properties
			assert.Equal(t, SubnetPrivate, tagValue(subnet, SubnetTypeTag), "publicly_accessible=%v", public)
		}
	}
}

func TestDatabase_DeletionPolicyToggle(t *testing.T) {
	tmpl := synth(t, func(c *config.Config) {
		c.Database.DeletionPolicy = "Snapshot"
		c.Database.DeletionProtection = true
	})

	def := tmpl.Resources[DBInstanceLogicalID]
	assert.Equal(t, wetwire.DeletionPolicySnapshot, def.DeletionPolicy)
	assert.Equal(t, wetwire.DeletionPolicySnapshot, def.UpdateReplacePolicy)
	assert.Equal(t, true, def.Properties["DeletionProtection"])
}

func TestBuild_TooManyNATs(t *testing.T) {
	cfg := config.Default()
	cfg.Network.NATGateways = 3

	_, err := Build(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestBuild_SingleZoneRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Network.MaxAZs = 1

	_, err := Build(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooFewZones)
}

func TestDeclareDatabase_SubnetsInOneZone(t *testing.T) {
	s := stack.New("Test", stack.Environment{})
	net := &Network{Private: []Subnet{{Kind: SubnetPrivate, Zone: 0}, {Kind: SubnetPrivate, Zone: 0}}}

	_, err := declareDatabase(s, config.Default().Database, net, stack.Handle{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooFewZones)
	assert.Equal(t, 0, s.Len())
}

func TestBuild_Handles(t *testing.T) {
	top, err := Build(config.Default(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "RDSVPC", top.Network.VPC.Name())
	assert.Len(t, top.Network.Public, 2)
	assert.Len(t, top.Network.Private, 2)
	assert.Len(t, top.Network.NATGateways, 1)
	assert.Equal(t, "AWS::RDS::DBInstance", top.Database.Instance.Type())
	assert.Equal(t, SubnetPrivate, top.ACLs.Private.Kind)
	assert.Len(t, top.ACLs.Private.Subnets, 1)
	assert.Equal(t, 34, top.Stack.Len())
}
