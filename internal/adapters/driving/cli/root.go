package cli

import (
	"github.com/spf13/cobra"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driving"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// version is set by Execute from the build-time version string.
var version = "dev"

var verbose bool

// Services injected by main before Execute. Commands guard against a
// nil service so the binary degrades with a clear message instead of
// panicking when wiring fails.
var (
	extractionService driving.ExtractionService
	indexService      driving.IndexService
	sourceCatalog     driven.SourceCatalog
	fieldTable        driven.FieldTable
	stagingStore      driven.StagingStore
	configStore       driven.ConfigStore
	contentFetcher    driven.ContentFetcher
)

// Services bundles everything the commands need.
type Services struct {
	Extraction driving.ExtractionService
	Index      driving.IndexService
	Catalog    driven.SourceCatalog
	Fields     driven.FieldTable
	Staging    driven.StagingStore
	Config     driven.ConfigStore
	Fetcher    driven.ContentFetcher
}

// SetServices wires the service implementations into the command tree.
func SetServices(s Services) {
	extractionService = s.Extraction
	indexService = s.Index
	sourceCatalog = s.Catalog
	fieldTable = s.Fields
	stagingStore = s.Staging
	configStore = s.Config
	contentFetcher = s.Fetcher
}

var rootCmd = &cobra.Command{
	Use:   "finlab",
	Short: "Extract structured data from financial disclosures",
	Long: `finlab extracts structured facts from financial disclosure documents.

It retrieves the relevant pages of prospectuses, memoranda and press
releases with semantic search, sends them to an extraction model and
merges the per-document results into one reviewed record per issue.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
