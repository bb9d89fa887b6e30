package rds

// DBSubnetGroup represents AWS::RDS::DBSubnetGroup.
// Every group must cover at least two availability zones, whether or not the
// instance it hosts is Multi-AZ.
type DBSubnetGroup struct {
	DBSubnetGroupName        any   `json:"DBSubnetGroupName,omitempty"`
	DBSubnetGroupDescription any   `json:"DBSubnetGroupDescription,omitempty"`
	SubnetIds                []any `json:"SubnetIds,omitempty"`
	Tags                     []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r DBSubnetGroup) ResourceType() string {
	return "AWS::RDS::DBSubnetGroup"
}
