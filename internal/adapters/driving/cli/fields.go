package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Show the extraction field routing table",
	Long: `Lists every configured extraction field with its source routing,
retrieval queries and merge behaviour. The table is data-driven: edit
fields.toml to add or adjust fields without a code change.`,
	Args: cobra.NoArgs,
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func runFields(cmd *cobra.Command, _ []string) error {
	if fieldTable == nil {
		return errors.New("field table not configured")
	}

	for _, field := range fieldTable.Fields() {
		def, err := fieldTable.Definition(field)
		if err != nil {
			return fmt.Errorf("failed to load definition for %s: %w", field, err)
		}

		cmd.Printf("%s\n", def.Field)
		if def.Description != "" {
			cmd.Printf("  %s\n", def.Description)
		}

		types := make([]string, len(def.SourceTypes))
		for i, st := range def.SourceTypes {
			types[i] = string(st)
		}
		cmd.Printf("  Sources:   %s\n", strings.Join(types, " > "))
		if def.AuthoritativeSource != nil {
			cmd.Printf("  Authority: %s\n", *def.AuthoritativeSource)
		}
		if len(def.IssueTypes) > 0 {
			cmd.Printf("  Issues:    %s\n", strings.Join(def.IssueTypes, ", "))
		}
		cmd.Printf("  Strategy:  %s", def.PageStrategy)
		if def.RequiresImage {
			cmd.Printf(" (with page images)")
		}
		cmd.Println()
		if def.ListField {
			cmd.Println("  Merge:     union by identity")
		}
		for _, q := range def.Queries {
			cmd.Printf("  Query:     %s\n", snippet(q, 100))
		}
		cmd.Println()
	}
	return nil
}
