// Package rds provides typed declarations for AWS::RDS resources.
package rds

// DBInstance represents AWS::RDS::DBInstance.
type DBInstance struct {
	DBInstanceIdentifier        any   `json:"DBInstanceIdentifier,omitempty"`
	DBInstanceClass             any   `json:"DBInstanceClass,omitempty"`
	Engine                      any   `json:"Engine,omitempty"`
	EngineVersion               any   `json:"EngineVersion,omitempty"`
	AllocatedStorage            any   `json:"AllocatedStorage,omitempty"`
	StorageType                 any   `json:"StorageType,omitempty"`
	StorageEncrypted            any   `json:"StorageEncrypted,omitempty"`
	DBName                      any   `json:"DBName,omitempty"`
	Port                        any   `json:"Port,omitempty"`
	MasterUsername              any   `json:"MasterUsername,omitempty"`
	MasterUserPassword          any   `json:"MasterUserPassword,omitempty"`
	DBSubnetGroupName           any   `json:"DBSubnetGroupName,omitempty"`
	VPCSecurityGroups           []any `json:"VPCSecurityGroups,omitempty"`
	MultiAZ                     any   `json:"MultiAZ,omitempty"`
	PubliclyAccessible          any   `json:"PubliclyAccessible,omitempty"`
	DeletionProtection          any   `json:"DeletionProtection,omitempty"`
	CopyTagsToSnapshot          any   `json:"CopyTagsToSnapshot,omitempty"`
	BackupRetentionPeriod       any   `json:"BackupRetentionPeriod,omitempty"`
	EnableCloudwatchLogsExports []any `json:"EnableCloudwatchLogsExports,omitempty"`
	Tags                        []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r DBInstance) ResourceType() string {
	return "AWS::RDS::DBInstance"
}
