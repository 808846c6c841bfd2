package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/classroll/internal/inference"
)

// Set with -ldflags "-X github.com/kozaktomas/classroll/cmd.Version=...".
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	Backends  []string `json:"backends"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build metadata and the compiled-in face backends",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versionInfo{
			Version:   Version,
			Commit:    CommitSHA,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Backends:  inference.Backends(),
		}
		if mustGetBool(cmd, "json") {
			return outputJSON(info)
		}
		fmt.Printf("classroll %s (%s, built %s, %s)\n", info.Version, info.Commit, info.BuildDate, info.GoVersion)
		fmt.Printf("face backends: %s\n", strings.Join(info.Backends, ", "))
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print as JSON")
	rootCmd.AddCommand(versionCmd)
}
