// Package config loads the topology configuration from YAML and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WETWIRE_RDS_"

// Username derivation strategies.
const (
	UsernameHash    = "hash"
	UsernameStackID = "stack-id"
)

// ACL attachment scopes.
const (
	ACLAttachFirst = "first"
	ACLAttachAll   = "all"
)

// Config is the full topology configuration.
type Config struct {
	StackName   string `yaml:"stack_name" validate:"required,stackname"`
	Description string `yaml:"description"`
	Account     string `yaml:"account" validate:"omitempty,len=12,numeric"`
	Region      string `yaml:"region" validate:"required"`
	LogLevel    string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	Network  NetworkConfig  `yaml:"network"`
	KeyPair  KeyPairConfig  `yaml:"key_pair"`
	Secret   SecretConfig   `yaml:"secret"`
	Database DatabaseConfig `yaml:"database"`
}

// NetworkConfig describes the VPC and its subnets.
type NetworkConfig struct {
	CIDR               string `yaml:"cidr" validate:"required,cidrv4"`
	MaxAZs             int    `yaml:"max_azs" validate:"min=2,max=2"`
	SubnetPrefix       int    `yaml:"subnet_prefix" validate:"min=16,max=28"`
	NATGateways        int    `yaml:"nat_gateways" validate:"min=1,ltefield=MaxAZs"`
	PrivateIngressCIDR string `yaml:"private_ingress_cidr" validate:"required,cidrv4"`
	// ACLAttachment selects which subnets of a class get the class ACL: the
	// first one, leaving the rest on the VPC default ACL, or all of them.
	ACLAttachment string `yaml:"acl_attachment" validate:"oneof=first all"`
}

// KeyPairConfig names the standalone key pair.
type KeyPairConfig struct {
	Name string `yaml:"name" validate:"required,max=255"`
}

// SecretConfig describes the generated credential secret.
type SecretConfig struct {
	Name             string `yaml:"name" validate:"required,max=512"`
	DatabaseLabel    string `yaml:"database_label" validate:"required"`
	UsernameStrategy string `yaml:"username_strategy" validate:"oneof=hash stack-id"`
}

// DatabaseConfig describes the MySQL instance.
type DatabaseConfig struct {
	EngineVersion      string   `yaml:"engine_version" validate:"required"`
	InstanceClass      string   `yaml:"instance_class" validate:"required,startswith=db."`
	AllocatedStorage   int      `yaml:"allocated_storage" validate:"min=20,max=65536"`
	Port               int      `yaml:"port" validate:"min=1150,max=65535"`
	DBName             string   `yaml:"db_name" validate:"required,max=64,alphanumunderscore"`
	MultiAZ            bool     `yaml:"multi_az"`
	PubliclyAccessible bool     `yaml:"publicly_accessible"`
	DeletionProtection bool     `yaml:"deletion_protection"`
	DeletionPolicy     string   `yaml:"deletion_policy" validate:"oneof=Delete Retain Snapshot"`
	LogExports         []string `yaml:"log_exports" validate:"dive,oneof=audit error general slowquery"`
}

// Default returns the configuration of the reference deployment.
func Default() *Config {
	return &Config{
		StackName:   "AwsGlueConnectorRdsCdkStack",
		Description: "RDS MySQL instance with its network topology",
		Account:     "076913533062",
		Region:      "us-east-1",
		LogLevel:    "info",
		Network: NetworkConfig{
			CIDR:               "10.0.0.0/16",
			MaxAZs:             2,
			SubnetPrefix:       24,
			NATGateways:        1,
			PrivateIngressCIDR: "10.0.128.0/17",
			ACLAttachment:      ACLAttachFirst,
		},
		KeyPair: KeyPairConfig{
			Name: "KeyPair-RDS-new",
		},
		Secret: SecretConfig{
			Name:             "RdsCredentials",
			DatabaseLabel:    "MYSQLDatabase",
			UsernameStrategy: UsernameHash,
		},
		Database: DatabaseConfig{
			EngineVersion:      "8.0.33",
			InstanceClass:      "db.t3.small",
			AllocatedStorage:   100,
			Port:               3306,
			DBName:             "MYSQL_Database",
			MultiAZ:            true,
			PubliclyAccessible: false,
			DeletionProtection: false,
			DeletionPolicy:     "Delete",
			LogExports:         []string{"error", "general", "slowquery"},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// and WETWIRE_RDS_* environment variables, in that order, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STACK_NAME":        &c.StackName,
		"ACCOUNT":           &c.Account,
		"REGION":            &c.Region,
		"LOG_LEVEL":         &c.LogLevel,
		"USERNAME_STRATEGY": &c.Secret.UsernameStrategy,
		"INSTANCE_CLASS":    &c.Database.InstanceClass,
		"DELETION_POLICY":   &c.Database.DeletionPolicy,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"MULTI_AZ":            &c.Database.MultiAZ,
		"PUBLICLY_ACCESSIBLE": &c.Database.PubliclyAccessible,
		"DELETION_PROTECTION": &c.Database.DeletionProtection,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}
	return nil
}

var validate = validator.New()

var stackNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

func init() {
	validate.RegisterValidation("stackname", func(fl validator.FieldLevel) bool {
		return stackNameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("alphanumunderscore", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_") == ""
	})
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
