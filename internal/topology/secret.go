package topology

import (
	"encoding/json"
	"fmt"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/intrinsics"
	"github.com/lex00/wetwire-rds-go/resources/secretsmanager"
)

// SecretLogicalID is the logical ID of the credential secret.
const SecretLogicalID = "RdsCredentialsSecret"

// Password generation policy. The excluded characters would break the JSON
// secret template or shell quoting in clients.
const (
	PasswordKey       = "password"
	PasswordLength    = 16
	ExcludeCharacters = "/@"
)

// Secret is the declared credential secret.
type Secret struct {
	Handle   stack.Handle
	Username any
	// Password resolves to the generated password at apply time.
	Password intrinsics.SecretValue
}

// secretTemplate renders the SecretStringTemplate. A literal username yields
// a literal JSON string; an intrinsic username yields an Fn::Join.
func secretTemplate(username any, database string) (any, error) {
	if u, ok := username.(string); ok {
		data, err := json.Marshal(struct {
			Username string `json:"username"`
			Database string `json:"database"`
		}{u, database})
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}

	db, err := json.Marshal(database)
	if err != nil {
		return nil, err
	}
	return intrinsics.Join{
		Delimiter: "",
		Values: []any{
			`{"username":"`,
			username,
			fmt.Sprintf(`","database":%s}`, db),
		},
	}, nil
}

// declareSecret declares the secret holding {username, database, password}.
// Only the password is generated.
func declareSecret(s *stack.Stack, cfg config.SecretConfig, username any) (*Secret, error) {
	tmpl, err := secretTemplate(username, cfg.DatabaseLabel)
	if err != nil {
		return nil, fmt.Errorf("secret template: %w", err)
	}

	h := s.Add(SecretLogicalID, &secretsmanager.Secret{
		Name:        cfg.Name,
		Description: "Master credentials for the RDS MySQL instance",
		GenerateSecretString: &secretsmanager.Secret_GenerateSecretString{
			SecretStringTemplate: tmpl,
			GenerateStringKey:    PasswordKey,
			PasswordLength:       PasswordLength,
			ExcludeCharacters:    ExcludeCharacters,
		},
	})

	return &Secret{
		Handle:   h,
		Username: username,
		Password: intrinsics.SecretValue{SecretID: h.Ref(), JSONKey: PasswordKey},
	}, nil
}
