package ec2

// NetworkAcl represents AWS::EC2::NetworkAcl.
type NetworkAcl struct {
	VpcId any   `json:"VpcId,omitempty"`
	Tags  []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r NetworkAcl) ResourceType() string {
	return "AWS::EC2::NetworkAcl"
}

// NetworkAclEntry represents AWS::EC2::NetworkAclEntry.
//
// Protocol "-1" means all protocols. Egress false is an ingress rule and must be
// set explicitly.
type NetworkAclEntry struct {
	NetworkAclId any                        `json:"NetworkAclId,omitempty"`
	RuleNumber   any                        `json:"RuleNumber,omitempty"`
	Protocol     any                        `json:"Protocol,omitempty"`
	RuleAction   any                        `json:"RuleAction,omitempty"`
	Egress       any                        `json:"Egress,omitempty"`
	CidrBlock    any                        `json:"CidrBlock,omitempty"`
	PortRange    *NetworkAclEntry_PortRange `json:"PortRange,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r NetworkAclEntry) ResourceType() string {
	return "AWS::EC2::NetworkAclEntry"
}

// NetworkAclEntry_PortRange is the port range of a TCP/UDP NACL entry.
type NetworkAclEntry_PortRange struct {
	From any `json:"From,omitempty"`
	To   any `json:"To,omitempty"`
}

// SubnetNetworkAclAssociation represents AWS::EC2::SubnetNetworkAclAssociation.
type SubnetNetworkAclAssociation struct {
	NetworkAclId any `json:"NetworkAclId,omitempty"`
	SubnetId     any `json:"SubnetId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r SubnetNetworkAclAssociation) ResourceType() string {
	return "AWS::EC2::SubnetNetworkAclAssociation"
}
