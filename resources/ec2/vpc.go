package ec2

// VPC represents AWS::EC2::VPC.
type VPC struct {
	// CidrBlock is the primary IPv4 address block.
	CidrBlock          any   `json:"CidrBlock,omitempty"`
	EnableDnsHostnames any   `json:"EnableDnsHostnames,omitempty"`
	EnableDnsSupport   any   `json:"EnableDnsSupport,omitempty"`
	InstanceTenancy    any   `json:"InstanceTenancy,omitempty"`
	Tags               []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r VPC) ResourceType() string {
	return "AWS::EC2::VPC"
}

// InternetGateway represents AWS::EC2::InternetGateway.
type InternetGateway struct {
	Tags []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r InternetGateway) ResourceType() string {
	return "AWS::EC2::InternetGateway"
}

// VPCGatewayAttachment represents AWS::EC2::VPCGatewayAttachment.
type VPCGatewayAttachment struct {
	InternetGatewayId any `json:"InternetGatewayId,omitempty"`
	VpcId             any `json:"VpcId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r VPCGatewayAttachment) ResourceType() string {
	return "AWS::EC2::VPCGatewayAttachment"
}
