package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

var stagingCmd = &cobra.Command{
	Use:   "staging",
	Short: "Inspect staged extractions awaiting review",
}

var stagingListCmd = &cobra.Command{
	Use:   "list [issue-id]",
	Short: "List staged extractions for an issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runStagingList,
}

var stagingShowCmd = &cobra.Command{
	Use:   "show [source-url] [field]",
	Short: "Print a staged extraction payload",
	Args:  cobra.ExactArgs(2),
	RunE:  runStagingShow,
}

func init() {
	stagingCmd.AddCommand(stagingListCmd)
	stagingCmd.AddCommand(stagingShowCmd)
	rootCmd.AddCommand(stagingCmd)
}

func runStagingList(cmd *cobra.Command, args []string) error {
	if stagingStore == nil {
		return errors.New("staging store not configured")
	}

	issueID := args[0]
	entries, err := stagingStore.ListByIssue(cmd.Context(), issueID)
	if err != nil {
		return fmt.Errorf("failed to list staged extractions: %w", err)
	}

	if len(entries) == 0 {
		cmd.Printf("No staged extractions for issue: %s\n", issueID)
		return nil
	}

	cmd.Printf("Staged extractions for issue %s:\n\n", issueID)
	for i := range entries {
		cmd.Printf("  %-18s %s\n", entries[i].Field, entries[i].SourceURL)
		cmd.Printf("    Status:  %s\n", entries[i].Status)
		cmd.Printf("    Updated: %s\n", entries[i].UpdatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}
	cmd.Printf("Total: %d entries\n", len(entries))
	return nil
}

func runStagingShow(cmd *cobra.Command, args []string) error {
	if stagingStore == nil {
		return errors.New("staging store not configured")
	}

	entry, err := stagingStore.Get(cmd.Context(), args[0], domain.ExtractionField(args[1]))
	if err != nil {
		return fmt.Errorf("failed to get staged extraction: %w", err)
	}

	cmd.Println(string(entry.Payload))
	return nil
}
