package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/ai"
	configfile "github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/config/file"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/fetch"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/render/poppler"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/storage/mysql"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driven/storage/sqlite"
	"github.com/Samwindheim/finance-lab-project-v2/internal/adapters/driving/cli"
	"github.com/Samwindheim/finance-lab-project-v2/internal/chunkers"
	htmlchunker "github.com/Samwindheim/finance-lab-project-v2/internal/chunkers/html"
	pdfchunker "github.com/Samwindheim/finance-lab-project-v2/internal/chunkers/pdf"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/services"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ai.LoadEnv()
	ctx := context.Background()

	cfg, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to initialise config: %w", err)
	}

	fieldTable, err := configfile.NewFieldTable(cfg.GetString("paths.fields_file"))
	if err != nil {
		return fmt.Errorf("failed to load field table: %w", err)
	}

	prompts, err := configfile.NewPromptStore(cfg.GetString("paths.prompt_dir"))
	if err != nil {
		return fmt.Errorf("failed to initialise prompts: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("paths.data_dir"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	staging, err := openStagingStore(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to open staging store: %w", err)
	}
	defer staging.Close()

	// AI-backed services are wired only when credentials are present,
	// so catalog and config commands work without any keys.
	var aiRes *ai.InitResult
	if os.Getenv(ai.EnvOpenAIKey) != "" {
		aiRes, err = ai.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialise AI services: %w", err)
		}
		defer aiRes.Close()
	} else {
		logger.Debug("%s not set, extraction commands disabled", ai.EnvOpenAIKey)
	}

	cli.SetServices(wireServices(cfg, store, staging, fieldTable, prompts, aiRes))
	return cli.Execute(version)
}

// wireServices assembles the service bundle the command tree runs on.
// A nil aiRes leaves the extraction and index services unset; their
// commands then report that they are not configured.
func wireServices(
	cfg driven.ConfigStore,
	store *sqlite.Store,
	staging driven.StagingStore,
	fieldTable driven.FieldTable,
	prompts driven.PromptStore,
	aiRes *ai.InitResult,
) cli.Services {
	pdfDir := cfg.GetString("paths.pdf_dir")
	if pdfDir == "" {
		pdfDir = fetch.DefaultPDFDir
	}
	fetcher := fetch.NewFetcher(pdfDir)

	svcs := cli.Services{
		Catalog: store.Catalog(),
		Fields:  fieldTable,
		Staging: staging,
		Config:  cfg,
		Fetcher: fetcher,
	}

	if aiRes != nil {
		registry := chunkers.NewRegistry(pdfchunker.New(), htmlchunker.New())
		indexer := services.NewIndexer(registry, aiRes.Embedder, store.IndexStore(), services.DefaultRetryPolicy)
		router := services.NewFieldRouter(fieldTable)
		merger := services.NewMergeEngine(fieldTable)
		renderer := poppler.NewRenderer(nil)

		svcs.Index = indexer
		svcs.Extraction = services.NewExtractionOrchestrator(
			store.Catalog(),
			fetcher,
			router,
			indexer,
			aiRes.Extractor,
			prompts,
			staging,
			renderer,
			merger,
			services.DefaultRetryPolicy,
		)
	}

	return svcs
}

// openStagingStore selects the staging backend. The default is the
// local sqlite database; staging.driver = "mysql" targets the shared
// review database instead.
func openStagingStore(cfg driven.ConfigStore, store *sqlite.Store) (driven.StagingStore, error) {
	if cfg.GetString("staging.driver") == "mysql" {
		dsn := cfg.GetString("staging.dsn")
		if dsn == "" {
			dsn = os.Getenv("MYSQL_DSN")
		}
		return mysql.NewStagingStore(dsn)
	}
	return store.StagingStore(), nil
}
