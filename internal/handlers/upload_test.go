package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"knee.png":               "knee.png",
		"my knee scan.jpg":       "my_knee_scan.jpg",
		"../../etc/passwd.png":   "etc_passwd.png",
		`C:\Users\x\röntgen.png`: "C_Users_x_rontgen.png",
		"...":                    "upload",
		"":                       "upload",
	}

	for in, want := range tests {
		got := secureFilename(in)
		prefix, rest, ok := strings.Cut(got, "_")
		require.True(t, ok, got)
		require.Len(t, prefix, 8, got)
		require.Equal(t, want, rest, in)
	}
}

func TestSecureFilename_Unique(t *testing.T) {
	t.Parallel()
	require.NotEqual(t, secureFilename("knee.png"), secureFilename("knee.png"))
}
