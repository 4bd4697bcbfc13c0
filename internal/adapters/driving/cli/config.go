package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration values.

Keys use dot notation, e.g. embedding.model or extraction.provider.
API keys are read from the environment (OPENAI_API_KEY, GEMINI_API_KEY)
and are never stored in the configuration file.`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

// shownKeys is the set listed by `finlab config`. Other keys still work
// with get and set; this is just the curated overview.
var shownKeys = []string{
	"embedding.base_url",
	"embedding.model",
	"embedding.dimensions",
	"embedding.batch_size",
	"embedding.requests_per_second",
	"extraction.provider",
	"extraction.model",
	"extraction.temperature",
	"extraction.base_url",
	"extraction.requests_per_second",
	"staging.driver",
	"staging.dsn",
	"paths.pdf_dir",
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()
	for _, key := range shownKeys {
		value, ok := configStore.Get(key)
		if !ok {
			cmd.Printf("  %-32s (not set)\n", key)
			continue
		}
		cmd.Printf("  %-32s %v\n", key, value)
	}
	cmd.Println()
	cmd.Printf("Config file: %s\n", configStore.Path())
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	value, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key not set: %s", args[0])
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, coerceValue(raw)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Set %s.\n", key)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(configStore.Path())
	return nil
}

// coerceValue interprets numeric and boolean literals so settings like
// embedding.dimensions round-trip as numbers rather than strings.
func coerceValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
