package uploadcmd

import (
	"context"
	"fmt"

	"github.com/shoptools/shoppush/internal/category"
	"github.com/shoptools/shoppush/internal/config"
	"github.com/shoptools/shoppush/internal/shop"
)

func executeCategoryRefresh(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := shop.NewClient(cfg.Shop)
	cache := category.NewCache(cfg.Category.CacheFile, cfg.Category.TTL, client.FetchCategories)

	snap, err := cache.Load(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to refresh category snapshot: %w", err)
	}

	fmt.Printf("Category snapshot refreshed: %d entries (%d leaves), cached at %s\n",
		len(snap.Entries), len(snap.Leaves()), cfg.Category.CacheFile)
	return nil
}

func executeCategoryMatch(ctx context.Context, text string, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := shop.NewClient(cfg.Shop)
	cache := category.NewCache(cfg.Category.CacheFile, cfg.Category.TTL, client.FetchCategories)

	snap, err := cache.Load(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to load category snapshot: %w", err)
	}

	resolver := category.NewResolver(snap, cfg.Category.DefaultPath)
	matches := resolver.Matches(text, limit)
	if len(matches) == 0 {
		fmt.Printf("No category matches for %q", text)
		if len(cfg.Category.DefaultPath) == category.LevelCount {
			fmt.Printf(", default path %v would be used", cfg.Category.DefaultPath)
		}
		fmt.Println()
		return nil
	}

	fmt.Printf("Matches for %q:\n", text)
	for _, m := range matches {
		fmt.Printf("  %3d  %-12s %s\n", m.Score, m.Leaf.ID, m.FullLabel)
	}
	return nil
}
