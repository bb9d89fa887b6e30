package topology

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/intrinsics"
)

// ErrStackIDFormat is returned when a stack ID lacks the segments the
// stack-id username derivation selects.
var ErrStackIDFormat = errors.New("stack ID does not have the expected segments")

const usernamePrefix = "user"

// HashUsername derives the master username from the deployment scope:
// "user" followed by the first 8 hex digits of sha256("account/region/stack").
// It is known at synthesis time and stable for a given target.
func HashUsername(account, region, stackName string) string {
	sum := sha256.Sum256([]byte(account + "/" + region + "/" + stackName))
	return usernamePrefix + hex.EncodeToString(sum[:])[:8]
}

// StackIDUsername is the engine-side expression of DeriveUsername:
//
//	"user" + Select(2, Split("-", Select(2, Split("/", AWS::StackId))))
func StackIDUsername() intrinsics.Join {
	return intrinsics.Join{
		Delimiter: "",
		Values: []any{
			usernamePrefix,
			intrinsics.Select{
				Index: 2,
				List: intrinsics.Split{
					Delimiter: "-",
					Source: intrinsics.Select{
						Index: 2,
						List:  intrinsics.Split{Delimiter: "/", Source: intrinsics.AWS_STACK_ID},
					},
				},
			},
		},
	}
}

// DeriveUsername evaluates the stack-id derivation for a concrete stack ID.
// Indexes are zero-based, as Fn::Select's are.
func DeriveUsername(stackID string) (string, error) {
	segments := strings.Split(stackID, "/")
	if len(segments) < 3 {
		return "", fmt.Errorf("%w: %q has %d '/' segments", ErrStackIDFormat, stackID, len(segments))
	}
	parts := strings.Split(segments[2], "-")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q has %d '-' segments", ErrStackIDFormat, segments[2], len(parts))
	}
	return usernamePrefix + parts[2], nil
}

// Username returns the master username value for cfg: a literal string for
// the hash strategy, an intrinsic for the stack-id strategy.
func Username(cfg *config.Config) (any, error) {
	switch cfg.Secret.UsernameStrategy {
	case config.UsernameHash, "":
		return HashUsername(cfg.Account, cfg.Region, cfg.StackName), nil
	case config.UsernameStackID:
		return StackIDUsername(), nil
	default:
		return nil, fmt.Errorf("unknown username strategy %q", cfg.Secret.UsernameStrategy)
	}
}
