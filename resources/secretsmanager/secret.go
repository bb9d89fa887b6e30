// Package secretsmanager provides typed declarations for AWS::SecretsManager resources.
package secretsmanager

// Secret represents AWS::SecretsManager::Secret.
// SecretString and GenerateSecretString are mutually exclusive.
type Secret struct {
	Name                 any                          `json:"Name,omitempty"`
	Description          any                          `json:"Description,omitempty"`
	KmsKeyId             any                          `json:"KmsKeyId,omitempty"`
	SecretString         any                          `json:"SecretString,omitempty"`
	GenerateSecretString *Secret_GenerateSecretString `json:"GenerateSecretString,omitempty"`
	Tags                 []any                        `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Secret) ResourceType() string {
	return "AWS::SecretsManager::Secret"
}

// Secret_GenerateSecretString configures the generated value.
//
// SecretStringTemplate is a JSON object; the generated string is stored under
// GenerateStringKey inside it.
type Secret_GenerateSecretString struct {
	SecretStringTemplate    any `json:"SecretStringTemplate,omitempty"`
	GenerateStringKey       any `json:"GenerateStringKey,omitempty"`
	PasswordLength          any `json:"PasswordLength,omitempty"`
	ExcludeCharacters       any `json:"ExcludeCharacters,omitempty"`
	ExcludePunctuation      any `json:"ExcludePunctuation,omitempty"`
	IncludeSpace            any `json:"IncludeSpace,omitempty"`
	RequireEachIncludedType any `json:"RequireEachIncludedType,omitempty"`
}
