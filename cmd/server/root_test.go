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

	var found bool
	for _, sub := range cmd.Commands() {
		if sub.Name() == "version" {
			found = true
		}
	}
	require.True(t, found)
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

func TestRun_RejectsBadPort(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), options{
		configPath: filepath.Join("testdata", "osteo.yaml"),
		port:       "99999",
	})
	require.ErrorIs(t, err, config.ErrInvalidPort)
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), options{configPath: filepath.Join(t.TempDir(), "nope.yaml")})
	require.ErrorIs(t, err, config.ErrConfigNotFound)
}
