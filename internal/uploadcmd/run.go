package uploadcmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shoptools/shoppush/internal/category"
	"github.com/shoptools/shoppush/internal/config"
	"github.com/shoptools/shoppush/internal/product"
	"github.com/shoptools/shoppush/internal/report"
	"github.com/shoptools/shoppush/internal/shop"
	"github.com/shoptools/shoppush/internal/uploader"
)

// listingOnShelf puts created products on sale immediately.
const listingOnShelf = 1

// uploadOptions are the upload command's knobs. Zero-valued overrides
// leave the configured values alone.
type uploadOptions struct {
	datasetPath       string
	outputJSON        string
	outputYAML        string
	outputReport      string
	sampleSize        int
	concurrency       int
	interval          time.Duration
	refreshCategories bool
	dryRun            bool
}

func executeUpload(ctx context.Context, opts uploadOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.concurrency > 0 {
		cfg.Upload.Concurrency = opts.concurrency
	}
	if opts.interval > 0 {
		cfg.Upload.MinInterval = opts.interval
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	slog.Info("Loading dataset", "path", opts.datasetPath)
	loader := product.NewLoader(opts.datasetPath)
	var records []product.Record
	if opts.sampleSize > 0 {
		records, err = loader.LoadSample(opts.sampleSize)
	} else {
		records, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s contains no records", opts.datasetPath)
	}
	slog.Info("Dataset loaded", "records", len(records))

	client := shop.NewClient(cfg.Shop)
	cache := category.NewCache(cfg.Category.CacheFile, cfg.Category.TTL, client.FetchCategories)

	snap, err := cache.Load(ctx, opts.refreshCategories)
	if err != nil {
		return fmt.Errorf("cannot start batch without a category snapshot: %w", err)
	}

	resolver := category.NewResolver(snap, cfg.Category.DefaultPath)
	completer := product.NewCompleter(cfg.Upload.DefaultStock, cfg.Upload.MinImages)

	tasks := buildTasks(records, snap, resolver, completer, cfg.Upload)

	if opts.dryRun {
		printDryRun(tasks, snap)
		return nil
	}

	orchestrator := uploader.NewOrchestrator(client, cfg.Upload.MaxAttempts, cfg.Upload.RateLimitWait)

	var limiter *rate.Limiter
	if cfg.Upload.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Upload.MinInterval), 1)
	}
	coordinator := uploader.NewCoordinator(orchestrator, cfg.Upload.Concurrency, limiter)

	start := time.Now()
	attempts := coordinator.Run(ctx, tasks)

	rep := report.Aggregate(attempts, time.Since(start), time.Now())
	rep.PrintSummary()

	if opts.outputJSON != "" {
		if err := rep.SaveJSON(opts.outputJSON); err != nil {
			return err
		}
		fmt.Printf("\nReport saved to: %s\n", opts.outputJSON)
	}
	if opts.outputReport != "" {
		if err := rep.SaveText(opts.outputReport); err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s\n", opts.outputReport)
	}
	if opts.outputYAML != "" {
		if err := rep.SaveYAML(opts.outputYAML); err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s\n", opts.outputYAML)
	}

	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d records failed to upload", rep.Failed, rep.Total)
	}
	return nil
}

// buildTasks resolves, completes and validates every record. A record
// that cannot be prepared becomes a task with an error: it is reported
// alongside the rest but never sent.
func buildTasks(records []product.Record, snap *category.Snapshot, resolver *category.Resolver, completer *product.Completer, cfg config.UploadConfig) []uploader.Task {
	tasks := make([]uploader.Task, len(records))
	for i, rec := range records {
		rec = completer.Complete(rec)

		path := rec.CategoryPath
		if !validPath(snap, path) {
			path = resolver.Resolve(rec.Title + " " + rec.Description)
		}
		if len(path) != category.LevelCount {
			tasks[i] = uploader.Task{
				Title: rec.Title,
				Err:   fmt.Errorf("no category match for %q and no default path configured", rec.Title),
			}
			continue
		}

		if err := completer.Validate(rec); err != nil {
			tasks[i] = uploader.Task{Title: rec.Title, Err: err}
			continue
		}

		tasks[i] = uploader.Task{
			Title:   rec.Title,
			Request: buildRequest(rec, path, cfg.DeliverMethod),
		}
	}
	return tasks
}

// validPath accepts an explicit category path only when it names a known
// root-to-leaf chain.
func validPath(snap *category.Snapshot, path []string) bool {
	if len(path) != category.LevelCount {
		return false
	}
	resolved, ok := snap.Path(path[category.LevelCount-1])
	if !ok {
		return false
	}
	for i := range path {
		if resolved[i] != path[i] {
			return false
		}
	}
	return true
}

func buildRequest(rec product.Record, path []string, deliverMethod int) *shop.ProductRequest {
	if rec.DeliverMethod != nil {
		deliverMethod = *rec.DeliverMethod
	}

	skus := make([]shop.SKU, len(rec.SKUs))
	for i, s := range rec.SKUs {
		skus[i] = shop.SKU{
			Price:    s.Price,
			StockNum: s.StockNum,
			OutSKUID: s.OutSKUID,
		}
	}

	cats := make([]shop.Cat, len(path))
	catsV2 := make([]shop.CatV2, len(path))
	for i, id := range path {
		cats[i] = shop.Cat{CatID: id}
		catsV2[i] = shop.CatV2{CatID: id, Level: i + 1}
	}

	return &shop.ProductRequest{
		Title:         rec.Title,
		SubTitle:      rec.SubTitle,
		HeadImgs:      rec.Images,
		DeliverMethod: deliverMethod,
		Cats:          cats,
		CatsV2:        catsV2,
		DescInfo: shop.DescInfo{
			Imgs: rec.DetailImages,
			Desc: rec.Description,
		},
		SKUs:         skus,
		OutProductID: rec.OutProductID,
		Listing:      listingOnShelf,
	}
}

// printDryRun shows what a batch would send without touching the
// create-product endpoint.
func printDryRun(tasks []uploader.Task, snap *category.Snapshot) {
	fmt.Println("Dry run, nothing will be uploaded.")
	fmt.Println()
	for i, task := range tasks {
		if task.Err != nil {
			fmt.Printf("[%d] REJECTED %s: %v\n", i, task.Title, task.Err)
			continue
		}
		req := task.Request
		leaf := req.Cats[len(req.Cats)-1].CatID
		fmt.Printf("[%d] %s\n", i, req.Title)
		fmt.Printf("    category: %s (%s)\n", strings.Join(catIDs(req.Cats), "/"), snap.FullLabel(leaf))
		fmt.Printf("    images: %d head, %d detail\n", len(req.HeadImgs), len(req.DescInfo.Imgs))
		for _, sku := range req.SKUs {
			fmt.Printf("    sku: price=%d stock=%d\n", sku.Price, sku.StockNum)
		}
	}
}

func catIDs(cats []shop.Cat) []string {
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.CatID
	}
	return ids
}
