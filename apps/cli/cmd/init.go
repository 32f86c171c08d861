package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	yamlInit  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default hitcall config file",
	Long: `Write a config file with the default client settings to the current
directory, plus an empty .env file for {{name}} placeholders.

This creates:
  - hitcall.config.json (or .hitcall.yaml with --yaml)
  - .env

Examples:
  hitcall init
  hitcall init --yaml --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().BoolVar(&yamlInit, "yaml", false, "Write .hitcall.yaml instead of hitcall.config.json")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	name := config.ConfigFilenames[0]
	if yamlInit {
		name = ".hitcall.yaml"
	}
	configFile := filepath.Join(cwd, name)
	envFile := filepath.Join(cwd, ".env")

	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return withExitCode(ExitConfigError, fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile))
		}
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{
		"User-Agent": "hitcall/" + version,
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	// an existing .env holds secrets; never overwrite it
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		content := "# Variables for {{name}} placeholders in items and config headers\n# TOKEN=secret\n"
		if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("failed to create env file: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitcall initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitcall get <url>' to make a call.\n")

	return nil
}
