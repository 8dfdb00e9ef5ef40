package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smartshop-be/internal/bootstrap"
	"smartshop-be/internal/config"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// --- Global Command Variables ---
var (
	catalogPath string
	vectorStore string
	verbose     bool

	cfg  *config.Config
	core *bootstrap.Core

	rootCmd = &cobra.Command{
		Use:   "shopctl",
		Short: "Operate the SmartShop assistant from the command line",
		Long: `shopctl loads the same configuration as the API server and drives the
catalog index, the document knowledge base and the dialogue engine directly.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setupCore,
		PersistentPostRunE: teardownCore,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest [catalog file]",
		Short: "Index the product catalog into the vector store",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIngest, // Defined in cmd_ingest.go
	}

	indexDocCmd = &cobra.Command{
		Use:   "index-doc [text file...]",
		Short: "Chunk and index knowledge base documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIndexDoc, // Defined in cmd_document.go
	}

	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Run a retrieval query and print the ranked items",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch, // Defined in cmd_search.go
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Chat with the assistant in the terminal",
		RunE:  runSimulate, // Defined in cmd_simulate.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file, overrides CATALOG_PATH")
	rootCmd.PersistentFlags().StringVar(&vectorStore, "vector-store", "", "memory, pgvector or qdrant, overrides VECTOR_STORE")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout in development format")

	ingestCmd.Flags().BoolVar(&ingestToDB, "to-db", false, "also upsert the products into postgres")

	indexDocCmd.Flags().StringVar(&docType, "type", "pdf_document", "document type stored with each chunk")
	indexDocCmd.Flags().StringVar(&docUploader, "uploaded-by", "shopctl", "uploader recorded on each chunk")

	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results, defaults to RETRIEVAL_TOP_K")
	searchCmd.Flags().StringVar(&searchIntent, "intent", "", "intent hint for the lexical search")

	simulateCmd.Flags().StringVar(&scriptPath, "script", "", "file with one customer message per line")
	simulateCmd.Flags().BoolVar(&skipIndex, "no-index", false, "skip catalog indexing before the conversation")

	rootCmd.AddCommand(ingestCmd, indexDocCmd, searchCmd, simulateCmd)
}

func setupCore(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	if catalogPath != "" {
		cfg.Retrieval.CatalogPath = catalogPath
		cfg.Retrieval.CatalogSource = "file"
	}
	if vectorStore != "" {
		cfg.Retrieval.VectorStore = vectorStore
	}

	var db *gorm.DB
	if cfg.Database.Connection != "" {
		var err error
		db, err = database.NewGormDBFromDSN(cfg.Database.Connection, verbose)
		if err != nil {
			return err
		}
	}

	var log *logger.ZapLogger
	if verbose {
		log = logger.NewZapLogger(cfg.App.LogFilePath, false)
	} else {
		log = logger.NewIsolatedLogger(cfg.App.LogFilePath)
	}

	c, err := bootstrap.NewCore(cmd.Context(), cfg, db, log)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	core = c
	return nil
}

func teardownCore(cmd *cobra.Command, args []string) error {
	if core != nil {
		core.Close()
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
