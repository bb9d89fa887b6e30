// Package ec2 provides typed declarations for AWS::EC2 resources used by the
// RDS network topology.
//
// Property fields are typed any so they accept literals or intrinsics:
//
//	var subnet = ec2.Subnet{
//	    VpcId:            vpc.Ref(),
//	    CidrBlock:        "10.0.2.0/24",
//	    AvailabilityZone: Select{Index: 0, List: GetAZs{}},
//	}
package ec2
