package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage per-document semantic indexes",
	Long:  `Build, query, inspect or clear the semantic index of a catalogued document.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [source-link]",
	Short: "Build the index for a document",
	Long: `Fetches the document, chunks it into units, embeds every unit and
persists the index, replacing any prior index for the same document.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexBuild,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query [source-link] [text]",
	Short: "Run a semantic query against a document index",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexQuery,
}

var indexUnitsCmd = &cobra.Command{
	Use:   "units [source-link]",
	Short: "List the indexed units of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexUnits,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status [source-link]",
	Short: "Report whether a document index exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexStatus,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear [source-link]",
	Short: "Remove the persisted index for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexClear,
}

var (
	indexQueryTopK   int
	indexClearStrict bool
	indexClearYes    bool
)

func init() {
	indexQueryCmd.Flags().IntVarP(&indexQueryTopK, "top-k", "n", 5, "number of hits to return")
	indexClearCmd.Flags().BoolVar(&indexClearStrict, "strict", false, "fail when no index exists")
	indexClearCmd.Flags().BoolVarP(&indexClearYes, "yes", "y", false, "confirm removal")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexUnitsCmd)
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexClearCmd)
	rootCmd.AddCommand(indexCmd)
}

// resolveDocument maps a source link to its catalog entry.
func resolveDocument(ctx context.Context, link string) (*domain.Document, error) {
	if sourceCatalog == nil {
		return nil, errors.New("source catalog not configured")
	}
	doc, err := sourceCatalog.FindByLink(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", link, err)
	}
	return doc, nil
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if contentFetcher == nil {
		return errors.New("content fetcher not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	content, err := contentFetcher.Fetch(ctx, *doc)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", doc.ID, err)
	}

	count, err := indexService.Build(ctx, *doc, content)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	cmd.Printf("Indexed %s: %d units.\n", doc.ID, count)
	return nil
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	hits, err := indexService.Query(ctx, doc.ID, args[1], indexQueryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(hits) == 0 {
		cmd.Println("No hits.")
		return nil
	}

	for i, hit := range hits {
		cmd.Printf("[%d] page %d (%.3f)\n", i+1, hit.Unit.Page(), hit.Similarity)
		cmd.Printf("    %s\n", snippet(hit.Unit.Text, 160))
	}
	return nil
}

func runIndexUnits(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	units, err := indexService.Units(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}

	cmd.Printf("Units for %s:\n\n", doc.ID)
	for _, u := range units {
		marker := ""
		if u.Image != nil {
			marker = " [image]"
		}
		cmd.Printf("  %4d%s  %s\n", u.Index, marker, snippet(u.Text, 80))
	}
	cmd.Printf("\nTotal: %d units\n", len(units))
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	exists, err := indexService.Exists(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}

	if exists {
		cmd.Printf("Index exists for %s.\n", doc.ID)
	} else {
		cmd.Printf("No index for %s.\n", doc.ID)
	}
	return nil
}

func runIndexClear(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	if !indexClearYes {
		cmd.Printf("This removes the index for %s. Re-run with --yes to confirm.\n", doc.ID)
		return nil
	}

	if err := indexService.Clear(ctx, doc.ID, indexClearStrict); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	cmd.Printf("Index cleared for %s.\n", doc.ID)
	return nil
}

// snippet trims text to a single display line.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}
