package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartshop-be/pkg/retrieval"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	docType     string
	docUploader string
)

func runIndexDoc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		doc := retrieval.DocumentInput{
			ID:           uuid.NewString(),
			Filename:     filepath.Base(path),
			DocumentType: docType,
			Text:         string(raw),
			UploadedBy:   docUploader,
			UploadedAt:   time.Now().UTC(),
		}
		n, err := core.Engine.IndexDocument(ctx, doc)
		if err != nil {
			color.Red("❌ %s: %v", doc.Filename, err)
			continue
		}
		color.Green("✅ %s → %d chunks (document_id %s)", doc.Filename, n, doc.ID)
	}
	return nil
}
