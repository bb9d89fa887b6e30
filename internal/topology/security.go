package topology

import (
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/resources/ec2"
)

// SecurityGroupLogicalID is the logical ID of the database security group.
const SecurityGroupLogicalID = "RdsSecurityGroup"

// declareSecurityGroup declares the database firewall: TCP on the database
// port from the VPC block only. The source is the literal block so the rule
// can be audited without resolving intrinsics.
func declareSecurityGroup(s *stack.Stack, net *Network, port int) stack.Handle {
	return s.Add(SecurityGroupLogicalID, &ec2.SecurityGroup{
		GroupDescription: "Security Group for RDS Instance",
		VpcId:            net.VPC.Ref(),
		SecurityGroupIngress: []any{
			ec2.SecurityGroup_Ingress{
				Description: "MySQL from within the VPC",
				IpProtocol:  "tcp",
				FromPort:    port,
				ToPort:      port,
				CidrIp:      net.CIDR,
			},
		},
		SecurityGroupEgress: []any{
			ec2.SecurityGroup_Egress{
				Description: "Allow all outbound traffic by default",
				IpProtocol:  "-1",
				CidrIp:      "0.0.0.0/0",
			},
		},
	})
}
