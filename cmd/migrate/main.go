package main

import (
	"log"

	"smartshop-be/internal/config"
	"smartshop-be/internal/model"
	"smartshop-be/pkg/database"
	"smartshop-be/pkg/vectorstore/pgvector"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Extensions
	log.Println("Step 1: Enabling pgvector...")
	if err := database.EnableVector(db); err != nil {
		log.Fatalf("Error: %v", err)
	}

	// 4. Tables
	log.Println("Step 2: Running AutoMigrate for products and vector_records...")
	if err := db.AutoMigrate(&model.Product{}); err != nil {
		log.Fatalf("Error: AutoMigrate products failed: %v", err)
	}
	if err := pgvector.New(db).Migrate(); err != nil {
		log.Fatalf("Error: AutoMigrate vector_records failed: %v", err)
	}

	// 5. Post-Migration: trigger and index
	log.Println("Step 3: Creating functions and indexes...")
	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION set_current_timestamp_updated_at() RETURNS trigger LANGUAGE plpgsql AS $$
		DECLARE _new_value TIMESTAMP WITH TIME ZONE;
		BEGIN
		  _new_value := now();
		  IF NEW.updated_at IS DISTINCT FROM _new_value THEN NEW.updated_at = _new_value; END IF;
		  RETURN NEW;
		END; $$;`,
		`DROP TRIGGER IF EXISTS set_products_updated_at ON products;`,
		`CREATE TRIGGER set_products_updated_at BEFORE UPDATE ON products
		 FOR EACH ROW EXECUTE FUNCTION set_current_timestamp_updated_at();`,
		// Partial index backing the offerable filter.
		`CREATE INDEX IF NOT EXISTS idx_products_offerable ON products (category)
		 WHERE in_stock AND (stock_quantity IS NULL OR stock_quantity > 0) AND deleted_at IS NULL;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
