package main

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/linter"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

// Every configuration under examples/ must load, synthesize and lint without
// errors.
func TestExamples(t *testing.T) {
	clearEnv(t)
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := config.Load(path)
			require.NoError(t, err)

			tmpl, err := topology.Synthesize(cfg, zerolog.Nop())
			require.NoError(t, err)

			result := linter.Lint(tmpl, linter.Options{})
			assert.True(t, result.Success, "%+v", result.Errors())
		})
	}
}

func TestExamples_Reference(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "reference.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestExamples_SingleAZInstanceSpansTwoZones(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "single-az.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Database.MultiAZ)

	top, err := topology.Build(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, top.Network.Private, topology.MinZones)
}

func TestClearEnv(t *testing.T) {
	t.Setenv(config.EnvPrefix+"STACK_NAME", "FromCaller")
	t.Setenv(config.EnvPrefix+"MULTI_AZ", "false")

	clearEnv(t)
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "reference.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestExamples_Hardened(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "hardened.yaml"))
	require.NoError(t, err)

	tmpl, err := topology.Synthesize(cfg, zerolog.Nop())
	require.NoError(t, err)

	result := linter.Lint(tmpl, linter.Options{})
	assert.Empty(t, result.Issues)
}
