package topology

import (
	"fmt"
	"strconv"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/stack"
	"github.com/lex00/wetwire-rds-go/resources/rds"
)

// Database logical IDs.
const (
	DBSubnetGroupLogicalID = "RdsDBSubnetGroup"
	DBInstanceLogicalID    = "RdsInstance"
)

// Engine is the only supported database engine.
const Engine = "mysql"

// Database is the declared instance and its subnet group.
type Database struct {
	SubnetGroup stack.Handle
	Instance    stack.Handle
}

// declareDatabase declares the subnet group over the private subnets and the
// MySQL instance. The instance waits for private egress routes so that
// first-boot traffic through the NAT gateway works.
func declareDatabase(s *stack.Stack, cfg config.DatabaseConfig, net *Network, sg stack.Handle, secret *Secret) (*Database, error) {
	zones := map[int]bool{}
	for _, sn := range net.Private {
		zones[sn.Zone] = true
	}
	if len(zones) < MinZones {
		return nil, fmt.Errorf("%s: %w: %d zones", DBSubnetGroupLogicalID, ErrTooFewZones, len(zones))
	}

	group := s.Add(DBSubnetGroupLogicalID, &rds.DBSubnetGroup{
		DBSubnetGroupDescription: "Private subnets for " + DBInstanceLogicalID,
		SubnetIds:                net.PrivateSubnetRefs(),
	})

	logs := make([]any, len(cfg.LogExports))
	for i, l := range cfg.LogExports {
		logs[i] = l
	}

	instance := s.Add(DBInstanceLogicalID, &rds.DBInstance{
		Engine:                      Engine,
		EngineVersion:               cfg.EngineVersion,
		DBInstanceClass:             cfg.InstanceClass,
		AllocatedStorage:            strconv.Itoa(cfg.AllocatedStorage),
		StorageType:                 "gp2",
		Port:                        strconv.Itoa(cfg.Port),
		DBName:                      cfg.DBName,
		MasterUsername:              secret.Username,
		MasterUserPassword:          secret.Password,
		DBSubnetGroupName:           group.Ref(),
		VPCSecurityGroups:           []any{sg.Attr("GroupId")},
		MultiAZ:                     cfg.MultiAZ,
		PubliclyAccessible:          cfg.PubliclyAccessible,
		DeletionProtection:          cfg.DeletionProtection,
		CopyTagsToSnapshot:          true,
		EnableCloudwatchLogsExports: logs,
	},
		stack.WithDeletionPolicy(wetwire.DeletionPolicy(cfg.DeletionPolicy)),
		stack.DependsOn(net.PrivateDefaultRoutes()...),
	)

	return &Database{SubnetGroup: group, Instance: instance}, nil
}
