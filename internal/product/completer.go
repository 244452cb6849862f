package product

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Placeholder values for records that arrive without copy. The platform
// rejects empty fields outright, placeholders at least let the batch run.
const (
	placeholderTitle       = "未命名商品"
	placeholderDescription = "暂无描述"
)

// Title length limits in effective (trimmed) runes, per platform rules.
const (
	minTitleRunes = 5
	maxTitleRunes = 60
)

// ValidationError marks a record that can never be accepted no matter
// how often it is retried. The batch reports it and moves on.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
}

// Completer fills missing record fields with defaults and validates the
// result against the platform's hard limits.
type Completer struct {
	DefaultStock int
	MinImages    int
}

// NewCompleter creates a completer with the configured defaults.
func NewCompleter(defaultStock, minImages int) *Completer {
	return &Completer{
		DefaultStock: defaultStock,
		MinImages:    minImages,
	}
}

// Complete returns a copy of rec with absent fields filled in. Calling
// it on an already-complete record changes nothing, so it is safe to
// run on re-submitted data.
func (c *Completer) Complete(rec Record) Record {
	if strings.TrimSpace(rec.Title) == "" {
		slog.Debug("Record has no title, using placeholder", "out_product_id", rec.OutProductID)
		rec.Title = placeholderTitle
	}
	if strings.TrimSpace(rec.Description) == "" {
		rec.Description = placeholderDescription
	}
	if rec.Stock == 0 {
		rec.Stock = c.DefaultStock
	}
	if len(rec.SKUs) == 0 {
		rec.SKUs = []SKU{{
			Price:    rec.Price,
			StockNum: rec.Stock,
		}}
	}
	return rec
}

// Validate checks the hard platform limits that no amount of defaulting
// can fix. It returns *ValidationError on the first violation.
func (c *Completer) Validate(rec Record) error {
	title := strings.TrimSpace(rec.Title)
	if n := utf8.RuneCountInString(title); n < minTitleRunes || n > maxTitleRunes {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be %d-%d characters, got %d", minTitleRunes, maxTitleRunes, n),
		}
	}
	if len(rec.Images) < c.MinImages {
		return &ValidationError{
			Field:  "images",
			Reason: fmt.Sprintf("needs at least %d head images, got %d", c.MinImages, len(rec.Images)),
		}
	}
	for i, sku := range rec.SKUs {
		if sku.Price < 0 {
			return &ValidationError{
				Field:  "skus",
				Reason: fmt.Sprintf("sku %d has negative price %d", i, sku.Price),
			}
		}
		if sku.StockNum < 0 {
			return &ValidationError{
				Field:  "skus",
				Reason: fmt.Sprintf("sku %d has negative stock %d", i, sku.StockNum),
			}
		}
	}
	return nil
}
