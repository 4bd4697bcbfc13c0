package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driving"
)

var (
	extractIssueID   string
	extractFields    []string
	extractOutputDir string
	extractJSON      bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [source-link]",
	Short: "Run an extraction over an issue or a single document",
	Long: `Runs the retrieval-and-merge pipeline.

With a source link (a PDF filename or an HTML URL) only that document
is processed; its issue is resolved from the source catalog. With
--issue-id every document linked to the issue is processed, PDFs first.

By default every applicable field is extracted. Use --field to restrict
the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractIssueID, "issue-id", "", "extract every document linked to this issue")
	extractCmd.Flags().StringArrayVarP(&extractFields, "field", "f", nil, "restrict the run to a field (repeatable)")
	extractCmd.Flags().StringVarP(&extractOutputDir, "output-dir", "o", "", "directory for the issue extraction file")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the merged record as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractionService == nil {
		return errors.New("extraction service not configured")
	}

	req := driving.ExtractionRequest{
		IssueID:   extractIssueID,
		OutputDir: extractOutputDir,
	}
	if len(args) == 1 {
		req.SourceLink = args[0]
	}
	if req.SourceLink == "" && req.IssueID == "" {
		return errors.New("a source link or --issue-id is required")
	}
	for _, f := range extractFields {
		req.Fields = append(req.Fields, domain.ExtractionField(f))
	}

	record, err := extractionService.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if extractJSON {
		return outputRecordJSON(cmd, record)
	}
	return outputRecordSummary(cmd, record)
}

func outputRecordJSON(cmd *cobra.Command, record *domain.IssueRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRecordSummary(cmd *cobra.Command, record *domain.IssueRecord) error {
	cmd.Printf("Issue: %s\n", record.IssueID)
	cmd.Printf("Documents processed: %d\n", len(record.Documents))
	for _, doc := range record.Documents {
		cmd.Printf("  %s\n", doc)
	}
	cmd.Println()

	if len(record.Fields) == 0 {
		cmd.Println("No fields extracted.")
	} else {
		fields := make([]string, 0, len(record.Fields))
		for f := range record.Fields {
			fields = append(fields, string(f))
		}
		sort.Strings(fields)

		cmd.Println("Extracted fields:")
		for _, f := range fields {
			merged := record.Fields[domain.ExtractionField(f)]
			cmd.Printf("  %-18s from %v\n", f, merged.ContributingDocs)
		}
	}

	if len(record.Failures) > 0 {
		cmd.Println()
		cmd.Printf("Failures (%d):\n", len(record.Failures))
		for _, fail := range record.Failures {
			cmd.Printf("  %s / %s: %s\n", fail.DocumentID, fail.Field, fail.Reason)
		}
	}

	cmd.Println()
	if record.Complete {
		cmd.Println("Run complete.")
	} else {
		cmd.Println("Run incomplete: some documents were skipped.")
	}
	return nil
}
