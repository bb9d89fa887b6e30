package ec2

// KeyPair represents AWS::EC2::KeyPair.
// Without PublicKeyMaterial, EC2 generates the key and stores the private half
// in SSM Parameter Store under /ec2/keypair/<key-pair-id>.
type KeyPair struct {
	KeyName           any   `json:"KeyName,omitempty"`
	KeyType           any   `json:"KeyType,omitempty"`
	KeyFormat         any   `json:"KeyFormat,omitempty"`
	PublicKeyMaterial any   `json:"PublicKeyMaterial,omitempty"`
	Tags              []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r KeyPair) ResourceType() string {
	return "AWS::EC2::KeyPair"
}
