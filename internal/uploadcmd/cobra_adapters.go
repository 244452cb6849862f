package uploadcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command for pushing a product dataset
// to the shop catalog.
func NewUploadCmd() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a product dataset to the shop catalog",
		Long: `Upload product records from a dataset file to the WeChat Channels Shop.

Records missing a category get one resolved from their title and description
against the shop taxonomy. Missing titles, descriptions, stock and SKUs are
filled with defaults before upload. Records that still fail validation are
reported but never sent.

Supported dataset formats: .json, .jsonl, .csv, .parquet.`,
		Example: `  # Upload a JSON dataset
  shoppush upload --dataset products.json

  # Preview what would be sent
  shoppush upload --dataset products.json --dry-run

  # Upload the first 5 records with a fresh category snapshot
  shoppush upload --dataset products.csv --sample 5 --refresh-categories`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", opts.datasetPath)
			}
			return executeUpload(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.datasetPath, "dataset", "", "Path to the product dataset file (required)")
	cmd.Flags().StringVar(&opts.outputJSON, "output-json", "upload_report.json", "Path to the JSON report file (empty to skip)")
	cmd.Flags().StringVar(&opts.outputReport, "output-report", "", "Path to the detailed text report file (empty to skip)")
	cmd.Flags().StringVar(&opts.outputYAML, "output-yaml", "", "Path to the YAML report file (empty to skip)")
	cmd.Flags().IntVar(&opts.sampleSize, "sample", -1, "Number of records to upload (-1 for all)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Worker pool size (0 uses UPLOAD_CONCURRENCY)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Minimum delay between upload starts (0 uses UPLOAD_MIN_INTERVAL)")
	cmd.Flags().BoolVar(&opts.refreshCategories, "refresh-categories", false, "Refetch the category taxonomy before uploading")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Resolve and validate records without uploading")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// NewGenerateCmd creates the generate command for producing listing
// copy with an LLM.
func NewGenerateCmd() *cobra.Command {
	var descriptionFile string
	var keywords string
	var provider string
	var model string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "generate [product name]...",
		Short: "Generate listing copy for products with an LLM",
		Long: `Generate title, subtitle and description for each named product and write
them as a dataset file ready for upload. Product names come from the
arguments, or one per line from --description. Images, prices and categories
are left empty; fill them in before uploading.`,
		Example: `  # Generate copy with the local Ollama model
  shoppush generate "保温杯" "蓝牙耳机" --keywords "便携,长续航"

  # Generate from a file of product descriptions, one per line
  shoppush generate --description products.txt

  # Generate with OpenAI into a custom dataset file
  shoppush generate "瑜伽垫" --provider openai --output yoga.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if descriptionFile != "" {
				fromFile, err := readDescriptions(descriptionFile)
				if err != nil {
					return err
				}
				names = append(names, fromFile...)
			}
			if len(names) == 0 {
				return fmt.Errorf("no products given: pass product names as arguments or use --description")
			}
			return executeGenerate(cmd.Context(), names, keywords, provider, model, outputPath)
		},
	}

	cmd.Flags().StringVar(&descriptionFile, "description", "", "File with one product description per line")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Comma-separated selling points to work into the copy")
	cmd.Flags().StringVar(&provider, "provider", "ollama", "LLM provider (ollama, openai, or gemini)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&outputPath, "output", "generated_products.json", "Path to the output dataset file")

	return cmd
}

// NewCategoryRefreshCmd creates the category refresh command.
func NewCategoryRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refetch the shop category taxonomy",
		Long: `Fetch the full category taxonomy from the shop API and overwrite the
local snapshot, regardless of its age.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCategoryRefresh(cmd.Context())
		},
	}
}

// NewCategoryMatchCmd creates the category match command for testing
// how free text resolves against the taxonomy.
func NewCategoryMatchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "match <text>...",
		Short: "Show which categories a product text resolves to",
		Example: `  # Top matches for a product title
  shoppush category match "不锈钢保温杯 500ml"

  # Show the 10 best candidates
  shoppush category match 蓝牙耳机 降噪 --limit 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCategoryMatch(cmd.Context(), strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of candidates to show")
	return cmd
}
