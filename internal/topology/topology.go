// Package topology declares the RDS deployment: the network and its ACLs, a
// standalone key pair, the database security group, the generated credential
// secret and the MySQL instance, in that order.
package topology

import (
	"fmt"

	"github.com/rs/zerolog"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/intrinsics"
)

// Topology is the declared deployment with handles to its components.
type Topology struct {
	Stack         *stack.Stack
	Network       *Network
	ACLs          *ACLs
	KeyPair       stack.Handle
	SecurityGroup stack.Handle
	Secret        *Secret
	Database      *Database
}

// Build declares every component of cfg on a new stack.
func Build(cfg *config.Config, logger zerolog.Logger) (*Topology, error) {
	s := stack.New(cfg.StackName, stack.Environment{Account: cfg.Account, Region: cfg.Region})
	s.SetDescription(cfg.Description)
	s.SetLogger(logger)

	t := &Topology{Stack: s}
	var err error

	t.Network, err = declareNetwork(s, cfg.Network)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("component", "network").Str("cidr", t.Network.CIDR).
		Int("public_subnets", len(t.Network.Public)).Int("private_subnets", len(t.Network.Private)).
		Msg("declared")

	t.ACLs, err = declareACLs(s, t.Network, cfg.Network.PrivateIngressCIDR, cfg.Network.ACLAttachment)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("component", "acls").Str("attachment", cfg.Network.ACLAttachment).Msg("declared")

	t.KeyPair = declareKeyPair(s, cfg.KeyPair)
	logger.Debug().Str("component", "key_pair").Str("key_name", cfg.KeyPair.Name).Msg("declared")

	t.SecurityGroup = declareSecurityGroup(s, t.Network, cfg.Database.Port)
	logger.Debug().Str("component", "security_group").Msg("declared")

	username, err := Username(cfg)
	if err != nil {
		return nil, err
	}
	t.Secret, err = declareSecret(s, cfg.Secret, username)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("component", "secret").Str("username_strategy", cfg.Secret.UsernameStrategy).Msg("declared")

	t.Database, err = declareDatabase(s, cfg.Database, t.Network, t.SecurityGroup, t.Secret)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("component", "database").Str("engine_version", cfg.Database.EngineVersion).
		Bool("publicly_accessible", cfg.Database.PubliclyAccessible).Msg("declared")
	if cfg.Database.PubliclyAccessible {
		logger.Warn().Msg("database is publicly accessible but placed in private subnets")
	}

	t.declareOutputs()
	return t, nil
}

// Synthesize builds the topology for cfg and returns its template.
func Synthesize(cfg *config.Config, logger zerolog.Logger) (*wetwire.Template, error) {
	t, err := Build(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("declaring topology: %w", err)
	}
	tmpl, err := t.Stack.Synthesize()
	if err != nil {
		return nil, fmt.Errorf("synthesizing %s: %w", cfg.StackName, err)
	}
	return tmpl, nil
}

func (t *Topology) declareOutputs() {
	export := func(name string) *wetwire.Export {
		return &wetwire.Export{Name: intrinsics.Sub{String: "${AWS::StackName}-" + name}}
	}

	t.Stack.Output("VpcId", wetwire.Output{
		Description: "VPC hosting the database",
		Value:       t.Network.VPC.Ref(),
		Export:      export("VpcId"),
	})
	t.Stack.Output("DatabaseEndpointAddress", wetwire.Output{
		Description: "Database endpoint hostname",
		Value:       t.Database.Instance.Attr("Endpoint.Address"),
	})
	t.Stack.Output("DatabaseEndpointPort", wetwire.Output{
		Description: "Database endpoint port",
		Value:       t.Database.Instance.Attr("Endpoint.Port"),
	})
	t.Stack.Output("CredentialsSecretArn", wetwire.Output{
		Description: "Secret holding username, database and password",
		Value:       t.Secret.Handle.Ref(),
		Export:      export("CredentialsSecretArn"),
	})
	t.Stack.Output("KeyPairName", wetwire.Output{
		Description: "Name of the generated key pair",
		Value:       t.KeyPair.Ref(),
	})
}
