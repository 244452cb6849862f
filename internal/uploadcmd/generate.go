package uploadcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shoptools/shoppush/internal/generate"
	"github.com/shoptools/shoppush/internal/product"
)

// readDescriptions loads product descriptions, one per line, skipping
// blanks and #-comments.
func readDescriptions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description file: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func executeGenerate(ctx context.Context, names []string, keywords, providerName, model, outputPath string) error {
	provider, err := generate.NewProvider(providerName)
	if err != nil {
		return err
	}
	if model == "" {
		model = generate.DefaultModel(providerName)
	}

	slog.Info("Generating listing copy", "provider", providerName, "model", model, "products", len(names))

	records := make([]product.Record, 0, len(names))
	for _, name := range names {
		listing, err := generate.Generate(ctx, provider, model, name, keywords)
		if err != nil {
			return fmt.Errorf("failed to generate listing for %q: %w", name, err)
		}

		slog.Info("Generated listing", "product", name, "title", listing.Title)
		records = append(records, listing.Record())
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	fmt.Printf("Wrote %d records to %s\n", len(records), outputPath)
	fmt.Println("Add images and prices, then upload with:")
	fmt.Printf("  shoppush upload --dataset %s\n", outputPath)
	return nil
}
