package ec2

// SecurityGroup represents AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupDescription     any   `json:"GroupDescription,omitempty"`
	VpcId                any   `json:"VpcId,omitempty"`
	SecurityGroupIngress []any `json:"SecurityGroupIngress,omitempty"`
	SecurityGroupEgress  []any `json:"SecurityGroupEgress,omitempty"`
	Tags                 []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r SecurityGroup) ResourceType() string {
	return "AWS::EC2::SecurityGroup"
}

// SecurityGroup_Ingress is an inline ingress rule.
type SecurityGroup_Ingress struct {
	Description any `json:"Description,omitempty"`
	IpProtocol  any `json:"IpProtocol,omitempty"`
	FromPort    any `json:"FromPort,omitempty"`
	ToPort      any `json:"ToPort,omitempty"`
	CidrIp      any `json:"CidrIp,omitempty"`
}

// SecurityGroup_Egress is an inline egress rule.
type SecurityGroup_Egress struct {
	Description any `json:"Description,omitempty"`
	IpProtocol  any `json:"IpProtocol,omitempty"`
	FromPort    any `json:"FromPort,omitempty"`
	ToPort      any `json:"ToPort,omitempty"`
	CidrIp      any `json:"CidrIp,omitempty"`
}
