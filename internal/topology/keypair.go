package topology

import (
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/intrinsics"
	"github.com/lex00/wetwire-rds-go/resources/ec2"
)

// KeyPairLogicalID is the key pair's logical ID. CloudFormation logical IDs
// are alphanumeric, so the hyphen of KeyPair-RDS is dropped.
const KeyPairLogicalID = "KeyPairRDS"

// declareKeyPair declares a generated RSA key pair. It is referenced by name
// only; nothing in the topology launches compute with it.
func declareKeyPair(s *stack.Stack, cfg config.KeyPairConfig) stack.Handle {
	return s.Add(KeyPairLogicalID, &ec2.KeyPair{
		KeyName: cfg.Name,
		KeyType: "rsa",
		Tags:    intrinsics.Tags("Name", cfg.Name),
	})
}
