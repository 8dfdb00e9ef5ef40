package main

import (
	"fmt"
	"strings"

	"smartshop-be/pkg/retrieval"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	searchTopK   int
	searchIntent string
)

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	var opts []retrieval.SearchOption
	if searchTopK > 0 {
		opts = append(opts, retrieval.WithTopK(searchTopK))
	}
	if searchIntent != "" {
		opts = append(opts, retrieval.WithIntent(searchIntent))
	}

	result, err := core.Engine.Search(ctx, query, opts...)
	if err != nil {
		color.Yellow("Semantic search failed (%v), falling back to lexical search", err)
		result = core.Engine.LexicalSearch(ctx, query, searchIntent)
	}
	if len(result.Items) == 0 {
		color.Yellow("No results for %q", query)
		return nil
	}

	for i, it := range result.Items {
		switch it.Kind {
		case retrieval.KindProduct:
			p := it.Product
			fmt.Printf("%2d. %s %s  %s  %s\n", i+1, color.CyanString("[produit]"), p.Name, color.HiBlackString(p.Category), scoreString(it.Score))
		case retrieval.KindDocumentChunk:
			c := it.Chunk
			fmt.Printf("%2d. %s %s #%d/%d  %s\n", i+1, color.MagentaString("[document]"), c.Filename, c.ChunkIndex+1, c.TotalChunks, scoreString(it.Score))
			fmt.Printf("    %s\n", preview(c.Text, 160))
		}
	}
	return nil
}

func scoreString(s float64) string {
	return color.GreenString("%.3f", s)
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "…"
}
