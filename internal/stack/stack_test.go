package stack

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/intrinsics"
	"github.com/lex00/wetwire-rds-go/resources/ec2"
	"github.com/lex00/wetwire-rds-go/resources/rds"
)

var testEnv = Environment{Account: "123456789012", Region: "us-east-1"}

func TestHandle(t *testing.T) {
	s := New("RdsStack", testEnv)
	vpc := s.Add("RDSVPC", &ec2.VPC{CidrBlock: "10.0.0.0/16"})

	assert.Equal(t, "RDSVPC", vpc.Name())
	assert.Equal(t, "AWS::EC2::VPC", vpc.Type())
	assert.Equal(t, intrinsics.Ref{LogicalName: "RDSVPC"}, vpc.Ref())
	assert.Equal(t, wetwire.AttrRef{Resource: "RDSVPC", Attribute: "CidrBlock"}, vpc.Attr("CidrBlock"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "RdsStack", s.Name())
	assert.Equal(t, testEnv, s.Environment())
}

func TestSynthesize_Dependencies(t *testing.T) {
	s := New("RdsStack", testEnv)
	vpc := s.Add("RDSVPC", &ec2.VPC{CidrBlock: "10.0.0.0/16"})
	sg := s.Add("RdsSecurityGroup", &ec2.SecurityGroup{
		GroupDescription: "Security Group for RDS Instance",
		VpcId:            vpc.Ref(),
		SecurityGroupIngress: []any{
			ec2.SecurityGroup_Ingress{IpProtocol: "tcp", FromPort: 3306, ToPort: 3306, CidrIp: vpc.Attr("CidrBlock")},
		},
	})
	s.Add("RdsInstance", &rds.DBInstance{
		VPCSecurityGroups: []any{sg.Attr("GroupId")},
	}, WithDeletionPolicy(wetwire.DeletionPolicyRetain))

	declared, err := s.Resources()
	require.NoError(t, err)
	require.Len(t, declared, 3)

	assert.Equal(t, "RDSVPC", declared[0].Name)
	assert.Empty(t, declared[0].Dependencies)
	assert.Equal(t, []string{"RDSVPC"}, declared[1].Dependencies)
	assert.Equal(t, []string{"RDSVPC"}, declared[1].AttrRefs)
	assert.Equal(t, []string{"RdsSecurityGroup"}, declared[2].Dependencies)

	tmpl, err := s.Synthesize()
	require.NoError(t, err)
	assert.Len(t, tmpl.Resources, 3)
	assert.Equal(t, wetwire.DeletionPolicyRetain, tmpl.Resources["RdsInstance"].DeletionPolicy)
	assert.Equal(t, wetwire.DeletionPolicyRetain, tmpl.Resources["RdsInstance"].UpdateReplacePolicy)
}

func TestSynthesize_ExplicitDependsOn(t *testing.T) {
	s := New("RdsStack", testEnv)
	route := s.Add("PrivateRoute", &ec2.Route{DestinationCidrBlock: "0.0.0.0/0"})
	s.Add("RdsInstance", &rds.DBInstance{Engine: "mysql"}, DependsOn(route))

	tmpl, err := s.Synthesize()
	require.NoError(t, err)
	assert.Equal(t, []string{"PrivateRoute"}, tmpl.Resources["RdsInstance"].DependsOn)
}

func TestSynthesize_CollectsErrors(t *testing.T) {
	s := New("RdsStack", testEnv)
	s.Add("KeyPair-RDS", &ec2.KeyPair{KeyName: "KeyPair-RDS-new"})
	s.Add("RDSVPC", &ec2.VPC{})
	s.Add("RDSVPC", &ec2.VPC{})
	s.Add("Subnet", &ec2.Subnet{VpcId: intrinsics.Ref{LogicalName: "MissingVPC"}})
	s.Add("Nil", nil)
	s.Output("Vpc-Id", wetwire.Output{Value: "x"})
	s.Output("Endpoint", wetwire.Output{Value: wetwire.AttrRef{Resource: "RdsInstance", Attribute: "Endpoint.Address"}})

	_, err := s.Synthesize()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `invalid logical ID "KeyPair-RDS"`)
	assert.Contains(t, msg, "duplicate logical ID: RDSVPC")
	assert.Contains(t, msg, "Subnet references undeclared resource MissingVPC")
	assert.Contains(t, msg, "Nil: nil declaration")
	assert.Contains(t, msg, `invalid output ID "Vpc-Id"`)
	assert.Contains(t, msg, "output Endpoint references undeclared resource RdsInstance")
}

func TestSynthesize_DuplicateOutput(t *testing.T) {
	s := New("RdsStack", testEnv)
	s.Output("VpcId", wetwire.Output{Value: "a"})
	s.Output("VpcId", wetwire.Output{Value: "b"})

	_, err := s.Synthesize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate output ID: VpcId")
}

func TestSynthesize_Deterministic(t *testing.T) {
	build := func() *wetwire.Template {
		s := New("RdsStack", testEnv)
		vpc := s.Add("RDSVPC", &ec2.VPC{CidrBlock: "10.0.0.0/16"})
		for _, id := range []string{"SubnetB", "SubnetA"} {
			s.Add(id, &ec2.Subnet{VpcId: vpc.Ref()})
		}
		s.Output("VpcId", wetwire.Output{Value: vpc.Ref()})
		tmpl, err := s.Synthesize()
		require.NoError(t, err)
		return tmpl
	}

	assert.Equal(t, build(), build())
}

func TestSynthesize_LogsDeclarations(t *testing.T) {
	var buf bytes.Buffer
	s := New("RdsStack", testEnv)
	s.SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	s.Add("RDSVPC", &ec2.VPC{})

	_, err := s.Synthesize()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"logical_id":"RDSVPC"`)
	assert.Contains(t, buf.String(), "synthesized template")
}

func TestValidLogicalID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{"RDSVPC", true},
		{"KeyPairRDS", true},
		{"RDSVPCPrivateSubnet1", true},
		{"KeyPair-RDS", false},
		{"", false},
		{"with space", false},
		{"under_score", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidLogicalID(tt.id))
		})
	}
}
