package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc := GetCmdContext(cmd)
		if cc.Fmt.IsJSON() {
			return cc.Fmt.Print(map[string]string{
				"version": orUnknown(buildInfo.Version, "dev"),
				"commit":  orUnknown(buildInfo.Commit, "unknown"),
				"date":    orUnknown(buildInfo.Date, "unknown"),
				"go":      runtime.Version(),
			})
		}
		outln(cc.Fmt.Writer(), "dnawallet "+FormatVersion(buildInfo))
		return nil
	},
}

// FormatVersion renders build info as "v1.2.3 (commit: abc123, built: 2026-01-02)".
func FormatVersion(info BuildInfo) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		orUnknown(info.Version, "dev"), orUnknown(info.Commit, "unknown"), orUnknown(info.Date, "unknown"))
}

func orUnknown(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
