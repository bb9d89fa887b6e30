package intrinsics

import (
	"encoding/json"
	"fmt"
)

// SecretValue is a dynamic reference to a JSON key inside a Secrets Manager
// secret. The provisioning engine resolves it at apply time, so the value never
// appears in the synthesized template:
//
//	{{resolve:secretsmanager:<secret>:SecretString:<key>::}}
//
// SecretID may be a literal name/ARN or an intrinsic such as Ref.
type SecretValue struct {
	SecretID any
	JSONKey  string
}

// MarshalJSON serializes the reference as a literal string when the secret ID is
// known, or as an Fn::Join around the intrinsic otherwise.
func (v SecretValue) MarshalJSON() ([]byte, error) {
	suffix := fmt.Sprintf(":SecretString:%s::}}", v.JSONKey)
	if id, ok := v.SecretID.(string); ok {
		return json.Marshal("{{resolve:secretsmanager:" + id + suffix)
	}
	return json.Marshal(Join{
		Delimiter: "",
		Values:    []any{"{{resolve:secretsmanager:", v.SecretID, suffix},
	})
}
