package differ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/template"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

func TestCompare(t *testing.T) {
	t1 := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"RDSVPC":           {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.0.0.0/16"}},
			"KeyPairRDS":       {Type: "AWS::EC2::KeyPair", Properties: map[string]any{"KeyName": "KeyPair-RDS-new"}},
			"RdsSecurityGroup": {Type: "AWS::EC2::SecurityGroup"},
		},
	}

	t2 := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"RDSVPC":           {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.1.0.0/16"}},
			"RdsSecurityGroup": {Type: "AWS::EC2::SecurityGroup"},
			"RdsInstance":      {Type: "AWS::RDS::DBInstance"},
		},
	}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Removed, 1)
	assert.Equal(t, "KeyPairRDS", result.Diff.Removed[0].Resource)

	require.Len(t, result.Diff.Added, 1)
	assert.Equal(t, "RdsInstance", result.Diff.Added[0].Resource)
	assert.Equal(t, "AWS::RDS::DBInstance", result.Diff.Added[0].Type)

	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, "RDSVPC", result.Diff.Modified[0].Resource)
	assert.Equal(t, []string{"CidrBlock modified"}, result.Diff.Modified[0].Changes)

	assert.Equal(t, 3, result.Summary.Total)
	assert.False(t, result.Empty())
}

func TestCompareIdentical(t *testing.T) {
	tmpl := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"RDSVPC": {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.0.0.0/16"}},
		},
	}

	result, err := Compare(tmpl, tmpl, Options{})
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestCompareEmpty(t *testing.T) {
	result, err := Compare(&wetwire.Template{}, &wetwire.Template{Resources: map[string]wetwire.ResourceDef{}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.Total)
}

func TestCompareTypeChange(t *testing.T) {
	t1 := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{"KeyPairRDS": {Type: "AWS::EC2::KeyPair"}}}
	t2 := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{"KeyPairRDS": {Type: "AWS::EC2::VPC"}}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Modified, 1)
	assert.Contains(t, result.Diff.Modified[0].Changes, "Type changed: AWS::EC2::KeyPair → AWS::EC2::VPC")
}

func TestComparePolicies(t *testing.T) {
	t1 := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"RdsInstance": {Type: "AWS::RDS::DBInstance", DeletionPolicy: wetwire.DeletionPolicyDelete, DependsOn: []string{"B", "A"}},
	}}
	t2 := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"RdsInstance": {Type: "AWS::RDS::DBInstance", DeletionPolicy: wetwire.DeletionPolicySnapshot, UpdateReplacePolicy: wetwire.DeletionPolicySnapshot, DependsOn: []string{"A", "B"}},
	}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{
		"DeletionPolicy changed: Delete → Snapshot",
		"UpdateReplacePolicy changed: (none) → Snapshot",
	}, result.Diff.Modified[0].Changes)
}

func TestCompareProperties(t *testing.T) {
	tests := []struct {
		name   string
		props1 map[string]any
		props2 map[string]any
		opts   Options
		want   []string
	}{
		{
			name:   "identical",
			props1: map[string]any{"Port": "3306"},
			props2: map[string]any{"Port": "3306"},
		},
		{
			name:   "added property",
			props1: map[string]any{},
			props2: map[string]any{"MultiAZ": true},
			want:   []string{"MultiAZ added"},
		},
		{
			name:   "removed property",
			props1: map[string]any{"MultiAZ": true},
			props2: map[string]any{},
			want:   []string{"MultiAZ removed"},
		},
		{
			name:   "nested property",
			props1: map[string]any{"GenerateSecretString": map[string]any{"PasswordLength": 16.0}},
			props2: map[string]any{"GenerateSecretString": map[string]any{"PasswordLength": 12.0}},
			want:   []string{"GenerateSecretString.PasswordLength modified"},
		},
		{
			name:   "intrinsic target",
			props1: map[string]any{"VpcId": map[string]any{"Ref": "RDSVPC"}},
			props2: map[string]any{"VpcId": map[string]any{"Ref": "OtherVPC"}},
			want:   []string{"VpcId modified"},
		},
		{
			name:   "order matters by default",
			props1: map[string]any{"EnableCloudwatchLogsExports": []any{"error", "general"}},
			props2: map[string]any{"EnableCloudwatchLogsExports": []any{"general", "error"}},
			want:   []string{"EnableCloudwatchLogsExports modified"},
		},
		{
			name:   "order ignored",
			props1: map[string]any{"EnableCloudwatchLogsExports": []any{"error", "general"}},
			props2: map[string]any{"EnableCloudwatchLogsExports": []any{"general", "error"}},
			opts:   Options{IgnoreOrder: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := compareProperties("", tt.props1, tt.props2, tt.opts)
			assert.Equal(t, tt.want, changes)
		})
	}
}

func synthesize(t *testing.T, mutate func(*config.Config)) *wetwire.Template {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	tmpl, err := topology.Synthesize(cfg, zerolog.Nop())
	require.NoError(t, err)
	return tmpl
}

func TestCompare_Resynthesis(t *testing.T) {
	result, err := Compare(synthesize(t, nil), synthesize(t, nil), Options{})
	require.NoError(t, err)
	assert.True(t, result.Empty(), "%+v", result.Diff)
}

func TestCompare_ConfigChange(t *testing.T) {
	before := synthesize(t, nil)
	after := synthesize(t, func(c *config.Config) {
		c.Database.DeletionProtection = true
		c.Database.DeletionPolicy = "Snapshot"
	})

	result, err := Compare(before, after, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Modified, 1)
	entry := result.Diff.Modified[0]
	assert.Equal(t, "RdsInstance", entry.Resource)
	assert.Contains(t, entry.Changes, "DeletionProtection modified")
	assert.Contains(t, entry.Changes, "DeletionPolicy changed: Delete → Snapshot")
}

func TestLoadTemplate_RoundTrip(t *testing.T) {
	synthesized := synthesize(t, nil)
	dir := t.TempDir()

	data, err := template.ToJSON(synthesized)
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, "template.json")
	require.NoError(t, os.WriteFile(jsonPath, data, 0o644))

	loaded, err := LoadTemplate(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, template.FormatVersion, loaded.AWSTemplateFormatVersion)
	assert.Len(t, loaded.Resources, len(synthesized.Resources))
	assert.Len(t, loaded.Outputs, len(synthesized.Outputs))

	result, err := Compare(synthesized, loaded, Options{})
	require.NoError(t, err)
	assert.True(t, result.Empty(), "%+v", result.Diff)
}

func TestLoadTemplateContent_ShortForm(t *testing.T) {
	content := []byte(`AWSTemplateFormatVersion: "2010-09-09"
Resources:
  RDSVPC:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.0.0.0/16
  RdsSecurityGroup:
    Type: AWS::EC2::SecurityGroup
    DeletionPolicy: Retain
    Properties:
      GroupDescription: Security Group for RDS Instance
      VpcId: !Ref RDSVPC
Outputs:
  VpcId:
    Value: !Ref RDSVPC
`)

	tmpl, err := LoadTemplateContent(content, "template.yaml")
	require.NoError(t, err)

	sg := tmpl.Resources["RdsSecurityGroup"]
	assert.Equal(t, "AWS::EC2::SecurityGroup", sg.Type)
	assert.Equal(t, wetwire.DeletionPolicyRetain, sg.DeletionPolicy)
	assert.Equal(t, map[string]any{"Ref": "RDSVPC"}, sg.Properties["VpcId"])
	assert.Equal(t, map[string]any{"Ref": "RDSVPC"}, tmpl.Outputs["VpcId"].Value)
}

func TestCompareFiles_Missing(t *testing.T) {
	_, err := CompareFiles(filepath.Join(t.TempDir(), "a.json"), filepath.Join(t.TempDir(), "b.json"), Options{})
	assert.Error(t, err)
}

func TestEqualStringSlices(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{nil, nil, true},
		{[]string{}, []string{}, true},
		{[]string{"a", "b"}, []string{"a", "b"}, true},
		{[]string{"a"}, []string{"b"}, false},
		{[]string{"a"}, []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, equalStringSlices(tt.a, tt.b), "%v vs %v", tt.a, tt.b)
	}
}
