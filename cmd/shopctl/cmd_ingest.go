package main

import (
	"fmt"
	"time"

	"smartshop-be/internal/model"
	"smartshop-be/internal/repository/implementation"
	"smartshop-be/internal/repository/specification"
	"smartshop-be/pkg/catalog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ingestToDB bool

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var products []catalog.Product
	var err error
	if len(args) == 1 {
		products, err = catalog.LoadFile(args[0])
	} else {
		products, err = core.Catalog.All(ctx)
	}
	if err != nil {
		return err
	}
	color.Cyan("📦 %d products loaded", len(products))

	if ingestToDB {
		if core.DB == nil {
			return fmt.Errorf("--to-db requires DB_CONNECTION_STRING")
		}
		if err := core.DB.AutoMigrate(&model.Product{}); err != nil {
			return fmt.Errorf("migrate products: %w", err)
		}
		repo := implementation.NewProductRepository(core.DB)
		if err := repo.Upsert(ctx, products); err != nil {
			return err
		}
		offerable, err := repo.Count(ctx, specification.Offerable{})
		if err != nil {
			return err
		}
		color.Green("🗄  Upserted into postgres (%d offerable)", offerable)
	}

	start := time.Now()
	n, err := core.Engine.IndexCatalog(ctx, products)
	if err != nil {
		return err
	}
	color.Green("✅ Indexed %d products in %s", n, time.Since(start).Round(time.Millisecond))
	if core.Config.Retrieval.VectorStore == "memory" {
		color.Yellow("The memory vector store is discarded when shopctl exits.")
	}
	return nil
}
