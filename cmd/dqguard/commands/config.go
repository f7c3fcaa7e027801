package commands

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/errors"
)

var (
	configInitForceFlag bool
	configInitPathFlag  string
)

// ConfigCmd groups the configuration commands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dqguard configuration",
	Long: `Manage dqguard configuration.

Configuration merges from /etc/dqguard/config.toml, the user config at
~/.dqguard/dqguard.toml, a project-local dqguard.toml or config.toml,
and DQGUARD_* environment variables, in that order of precedence.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective merged configuration",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForceFlag, "force", false, "Overwrite an existing config file")
	configInitCmd.Flags().StringVar(&configInitPathFlag, "path", "", "Config file path (defaults to the user config)")
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitPathFlag
	if path == "" {
		path = config.DefaultUserConfigPath()
	}
	if path == "" {
		return errors.New("cannot determine config path, pass --path")
	}

	if err := config.WriteDefault(path, configInitForceFlag); err != nil {
		return err
	}

	pterm.Success.Printf("Config written to %s\n", path)
	pterm.Info.Println("Edit thresholds, caching, and escalation there, then run 'dqguard run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return err
	}

	settings := config.GetViper().AllSettings()
	data, err := toml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "failed to render config")
	}

	pterm.Println(string(data))
	return nil
}
