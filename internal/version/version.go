// Package version reports build information for the command line tools.
package version

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X github.com/Brownie44l1/osteo-care/internal/version.version=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

// Version returns the ldflags version, the module version, or "(devel)".
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// Commit returns the short VCS revision, or "unknown".
func Commit() string {
	if commit != "" {
		return commit
	}
	if rev := buildSetting("vcs.revision"); rev != "" {
		if len(rev) > 7 {
			return rev[:7]
		}
		return rev
	}
	return "unknown"
}

// Date returns the build or commit time, or "unknown".
func Date() string {
	if date != "" {
		return date
	}
	if t := buildSetting("vcs.time"); t != "" {
		return t
	}
	return "unknown"
}

func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// NewCmd creates the version subcommand for the named program.
func NewCmd(program string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  fmt.Sprintf("Print the version, commit hash, and build date of %s.", program),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", program, Version())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", Commit())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", Date())
		},
	}
}
