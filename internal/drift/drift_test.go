package drift

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/livestate"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

func declared(t *testing.T) Declared {
	t.Helper()
	cfg := config.Default()
	top, err := topology.Build(cfg, zerolog.Nop())
	require.NoError(t, err)
	return FromTopology(top, cfg)
}

// inSync returns live state matching the default declaration.
func inSync() *livestate.State {
	return &livestate.State{
		Account: "076913533062",
		VPC:     &livestate.VPC{ID: "vpc-1", LogicalID: "RDSVPC", CIDR: "10.0.0.0/16"},
		Subnets: []livestate.Subnet{
			{ID: "subnet-3", LogicalID: "RDSVPCPrivateSubnet1", CIDR: "10.0.2.0/24"},
			{ID: "subnet-4", LogicalID: "RDSVPCPrivateSubnet2", CIDR: "10.0.3.0/24"},
			{ID: "subnet-1", LogicalID: "RDSVPCPublicSubnet1", CIDR: "10.0.0.0/24"},
			{ID: "subnet-2", LogicalID: "RDSVPCPublicSubnet2", CIDR: "10.0.1.0/24"},
		},
		SecurityGroups: []livestate.SecurityGroup{{
			ID:        "sg-1",
			LogicalID: "RdsSecurityGroup",
			Ingress:   []livestate.Rule{{Protocol: "tcp", FromPort: 3306, ToPort: 3306, CIDR: "10.0.0.0/16"}},
		}},
		NetworkACLs: []livestate.NetworkACL{{
			ID:        "acl-2",
			LogicalID: "RDSVPCPrivateSubnetNACL",
			Entries: []livestate.ACLEntry{
				{Number: 100, Egress: true, Protocol: "-1", CIDR: "0.0.0.0/0", Action: "allow"},
				{Number: 100, Protocol: "-1", CIDR: "10.0.128.0/17", Action: "allow"},
			},
		}},
		Database: &livestate.DBInstance{
			Identifier:       "rds-1",
			LogicalID:        "RdsInstance",
			Engine:           "mysql",
			EngineVersion:    "8.0.33",
			Class:            "db.t3.small",
			AllocatedStorage: 100,
			Port:             3306,
			MultiAZ:          true,
			LogExports:       []string{"slowquery", "general", "error"},
		},
	}
}

func TestFromTopology(t *testing.T) {
	d := declared(t)

	assert.Equal(t, "10.0.0.0/16", d.VPCCIDR)
	assert.Equal(t, map[string]string{
		"RDSVPCPublicSubnet1":  "10.0.0.0/24",
		"RDSVPCPublicSubnet2":  "10.0.1.0/24",
		"RDSVPCPrivateSubnet1": "10.0.2.0/24",
		"RDSVPCPrivateSubnet2": "10.0.3.0/24",
	}, d.Subnets)
	assert.Equal(t, []livestate.Rule{{Protocol: "tcp", FromPort: 3306, ToPort: 3306, CIDR: "10.0.0.0/16"}}, d.Ingress)
	assert.Equal(t, "RDSVPCPrivateSubnetNACL", d.PrivateACL)
	assert.Equal(t, []string{"error", "general", "slowquery"}, d.Database.LogExports)
}

func TestDetect_InSync(t *testing.T) {
	result, err := Detect(declared(t), inSync(), nil)
	require.NoError(t, err)

	assert.False(t, result.HasDrift, "%+v", result.Drifts)
	assert.Equal(t, Attributes(), result.Checked)
}

// Configs that are equivalent to the live resources must not report drift
// just because they spell the value differently.
func TestDetect_EquivalentDeclarations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config, live *livestate.State)
	}{
		{
			name: "empty log exports read back as nil",
			mutate: func(cfg *config.Config, live *livestate.State) {
				cfg.Database.LogExports = []string{}
				live.Database.LogExports = nil
			},
		},
		{
			name: "private ingress with host bits",
			mutate: func(cfg *config.Config, live *livestate.State) {
				cfg.Network.PrivateIngressCIDR = "10.0.128.1/17"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			live := inSync()
			tt.mutate(cfg, live)

			top, err := topology.Build(cfg, zerolog.Nop())
			require.NoError(t, err)

			result, err := Detect(FromTopology(top, cfg), live, nil)
			require.NoError(t, err)
			assert.False(t, result.HasDrift, "%+v", result.Drifts)
		})
	}
}

func TestDetect_Drift(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *livestate.State)
		attribute string
		resource  string
	}{
		{
			name:      "vpc cidr",
			mutate:    func(s *livestate.State) { s.VPC.CIDR = "10.1.0.0/16" },
			attribute: "vpc_cidr",
			resource:  "RDSVPC",
		},
		{
			name:      "subnet missing",
			mutate:    func(s *livestate.State) { s.Subnets = s.Subnets[1:] },
			attribute: "subnet_cidrs",
			resource:  "RDSVPCPrivateSubnet1",
		},
		{
			name: "extra ingress",
			mutate: func(s *livestate.State) {
				s.SecurityGroups[0].Ingress = append(s.SecurityGroups[0].Ingress, livestate.Rule{Protocol: "tcp", FromPort: 3306, ToPort: 3306, CIDR: "0.0.0.0/0"})
			},
			attribute: "security_group_ingress",
			resource:  "RdsSecurityGroup",
		},
		{
			name:      "acl ingress widened",
			mutate:    func(s *livestate.State) { s.NetworkACLs[0].Entries[1].CIDR = "0.0.0.0/0" },
			attribute: "private_acl_ingress",
			resource:  "RDSVPCPrivateSubnetNACL",
		},
		{
			name:      "engine upgraded",
			mutate:    func(s *livestate.State) { s.Database.EngineVersion = "8.0.35" },
			attribute: "engine_version",
			resource:  "RdsInstance",
		},
		{
			name:      "made public",
			mutate:    func(s *livestate.State) { s.Database.PubliclyAccessible = true },
			attribute: "publicly_accessible",
			resource:  "RdsInstance",
		},
		{
			name:      "protection enabled",
			mutate:    func(s *livestate.State) { s.Database.DeletionProtection = true },
			attribute: "deletion_protection",
			resource:  "RdsInstance",
		},
		{
			name:      "log export dropped",
			mutate:    func(s *livestate.State) { s.Database.LogExports = []string{"error"} },
			attribute: "log_exports",
			resource:  "RdsInstance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := inSync()
			tt.mutate(live)

			result, err := Detect(declared(t), live, nil)
			require.NoError(t, err)

			require.True(t, result.HasDrift)
			require.Len(t, result.Drifts, 1, "%+v", result.Drifts)
			assert.Equal(t, tt.attribute, result.Drifts[0].Attribute)
			assert.Equal(t, tt.resource, result.Drifts[0].Resource)
		})
	}
}

func TestDetect_NotDeployed(t *testing.T) {
	result, err := Detect(declared(t), &livestate.State{}, nil)
	require.NoError(t, err)

	assert.True(t, result.HasDrift)
	for _, d := range result.Drifts {
		assert.Nil(t, d.Live, d.Attribute)
	}
}

func TestDetect_SelectedAttributes(t *testing.T) {
	live := inSync()
	live.Database.Class = "db.t3.medium"
	live.VPC.CIDR = "10.1.0.0/16"

	result, err := Detect(declared(t), live, []string{"Instance-Class"})
	require.NoError(t, err)
	assert.Equal(t, []string{"instance_class"}, result.Checked)
	require.Len(t, result.Drifts, 1)
	assert.Equal(t, "db.t3.small", result.Drifts[0].Declared)
	assert.Equal(t, "db.t3.medium", result.Drifts[0].Live)

	_, err = Detect(declared(t), live, []string{"ami"})
	assert.ErrorIs(t, err, ErrUnsupportedAttribute)

	_, err = Detect(declared(t), nil, nil)
	assert.Error(t, err)
}

func TestNormalizeAttributeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"engine_version", "engine_version"},
		{"Engine-Version", "engine_version"},
		{"multi az", "multi_az"},
		{"sg", "security_group_ingress"},
		{"logs", "log_exports"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAttributeName(tt.in))
		})
	}
}

func TestReport_Write(t *testing.T) {
	live := inSync()
	live.Database.MultiAZ = false
	result, err := Detect(declared(t), live, nil)
	require.NoError(t, err)

	report := Report{Stack: "AwsGlueConnectorRdsCdkStack", Account: "076913533062", Result: *result}

	var table bytes.Buffer
	require.NoError(t, report.Write(&table, FormatTable))
	assert.Contains(t, table.String(), "multi_az")
	assert.Contains(t, table.String(), "RdsInstance")
	assert.Contains(t, table.String(), "Summary: 1 drifts across")

	var js bytes.Buffer
	require.NoError(t, report.Write(&js, FormatJSON))
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &parsed))
	assert.Equal(t, true, parsed["has_drift"])
	assert.Equal(t, "AwsGlueConnectorRdsCdkStack", parsed["stack"])

	assert.Error(t, report.Write(&js, Format("xml")))
}
