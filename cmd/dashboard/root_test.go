package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/osteo-care/internal/config"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	require.Equal(t, program, cmd.Use)
	for _, name := range []string{"config", "verbose", "port"} {
		require.NotNil(t, cmd.Flag(name), name)
	}
}

func TestVersionSubcommand(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), program+" version")
}

func TestRun_RequiresTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	err := run(context.Background(), options{configPath: filepath.Join("testdata", "osteo.yaml")})
	require.ErrorIs(t, err, config.ErrNoTelegramToken)
}
