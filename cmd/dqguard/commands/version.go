package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/version"
)

var versionJSONFlag bool

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show version, commit hash, build time, and platform information.`,
	RunE:  runVersion,
}

func init() {
	VersionCmd.Flags().BoolVarP(&versionJSONFlag, "json", "j", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()

	if versionJSONFlag {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal version info")
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(info.String())
	fmt.Printf("  platform: %s\n", info.Platform)
	fmt.Printf("  go:       %s\n", info.GoVersion)
	return nil
}
