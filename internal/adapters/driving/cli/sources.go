package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the source document catalog",
	Long:  `List, register or inspect the catalogued source documents and their issue linkage.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every catalogued document",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesIssueCmd = &cobra.Command{
	Use:   "issue [issue-id]",
	Short: "List documents linked to an issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesIssue,
}

var sourcesShowCmd = &cobra.Command{
	Use:   "show [source-link]",
	Short: "Show a catalogued document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesShow,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add [source-url]",
	Short: "Register a source document",
	Long: `Registers a document in the source catalog. PDFs are identified by
filename, HTML sources by their full URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesAdd,
}

var (
	addIssueID    string
	addIssueType  string
	addSourceType string
	addDocClass   string
)

func init() {
	sourcesAddCmd.Flags().StringVar(&addIssueID, "issue-id", "", "issue this document belongs to")
	sourcesAddCmd.Flags().StringVar(&addIssueType, "issue-type", "rights_issue", "issue type")
	sourcesAddCmd.Flags().StringVar(&addSourceType, "source-type", "", "document format: pdf or html (required)")
	sourcesAddCmd.Flags().StringVar(&addDocClass, "doc-class", "", "disclosure kind, e.g. prospectus or press_release")
	_ = sourcesAddCmd.MarkFlagRequired("source-type")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesIssueCmd)
	sourcesCmd.AddCommand(sourcesShowCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if sourceCatalog == nil {
		return errors.New("source catalog not configured")
	}

	docs, err := sourceCatalog.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No sources catalogued.")
		return nil
	}

	printDocuments(cmd, docs)
	return nil
}

func runSourcesIssue(cmd *cobra.Command, args []string) error {
	if sourceCatalog == nil {
		return errors.New("source catalog not configured")
	}

	issueID := args[0]
	docs, err := sourceCatalog.FindByIssue(cmd.Context(), issueID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for issue: %s\n", issueID)
		return nil
	}

	cmd.Printf("Documents for issue %s:\n\n", issueID)
	printDocuments(cmd, docs)
	return nil
}

func runSourcesShow(cmd *cobra.Command, args []string) error {
	doc, err := resolveDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Source type:  %s\n", doc.SourceType)
	cmd.Printf("  Source URL:   %s\n", doc.SourceURL)
	cmd.Printf("  Issue:        %s\n", orUnset(doc.IssueID))
	cmd.Printf("  Issue type:   %s\n", orUnset(doc.IssueType))
	cmd.Printf("  Doc class:    %s\n", orUnset(doc.DocClass))
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	if sourceCatalog == nil {
		return errors.New("source catalog not configured")
	}

	sourceType, err := domain.ParseSourceType(addSourceType)
	if err != nil {
		return err
	}

	doc := domain.Document{
		IssueID:    addIssueID,
		IssueType:  addIssueType,
		SourceType: sourceType,
		SourceURL:  args[0],
		DocClass:   addDocClass,
	}

	if err := sourceCatalog.Save(cmd.Context(), doc); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}

	cmd.Printf("Registered %s source: %s\n", sourceType, domain.DocumentID(args[0], sourceType))
	return nil
}

func printDocuments(cmd *cobra.Command, docs []domain.Document) {
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Type:  %s", docs[i].SourceType)
		if docs[i].DocClass != "" {
			cmd.Printf(" (%s)", docs[i].DocClass)
		}
		cmd.Println()
		if docs[i].IssueID != "" {
			cmd.Printf("    Issue: %s\n", docs[i].IssueID)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
