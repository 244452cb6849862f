package product

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads product records from a dataset file. The format is
// detected from the extension.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given dataset file.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads all records from the dataset file.
func (l *Loader) Load() ([]Record, error) {
	switch ext := strings.ToLower(filepath.Ext(l.path)); ext {
	case ".parquet":
		return l.loadParquet()
	case ".jsonl":
		return l.loadJSONL()
	case ".json":
		return l.loadJSON()
	case ".csv":
		return l.loadCSV()
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s (supported: .json, .jsonl, .csv, .parquet)", ext)
	}
}

// loadJSON reads a single JSON array of records.
func (l *Loader) loadJSON() ([]Record, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	slog.Debug("Loaded JSON dataset", "path", l.path, "records", len(records))
	return records, nil
}

// loadJSONL reads one record per line.
func (l *Loader) loadJSONL() ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)

	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Loaded JSONL dataset", "path", l.path, "records", len(records))
	return records, nil
}

// loadParquet reads all rows from a parquet file in batches.
func (l *Loader) loadParquet() ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "path", l.path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	var records []Record
	rows := make([]Record, 128)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Loaded parquet dataset", "path", l.path, "records", len(records))
	return records, nil
}

// CSV header names the spreadsheet template uses. Image and category
// columns are numbered (主图1..主图9, 详情图1..详情图3).
const (
	colTitle         = "商品标题"
	colSubTitle      = "副标题"
	colDescription   = "商品描述"
	colDeliverMethod = "发货方式"
	colCat1          = "一级类目ID"
	colCat2          = "二级类目ID"
	colCat3          = "三级类目ID"
	colSKUPrice      = "SKU价格(分)"
	colSKUStock      = "SKU库存"
	colSKUCode       = "SKU编码"
	colHeadImgPrefix = "主图"
	colDescImgPrefix = "详情图"
)

// loadCSV reads records from the spreadsheet export template. The first
// row is the header; unknown columns are ignored.
func (l *Loader) loadCSV() ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col[colTitle]; !ok {
		return nil, fmt.Errorf("CSV header missing required column %q", colTitle)
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	rowNum := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowNum+1, err)
		}
		rowNum++

		rec := Record{
			Title:       field(row, colTitle),
			SubTitle:    field(row, colSubTitle),
			Description: field(row, colDescription),
		}

		if v := field(row, colDeliverMethod); v != "" {
			m, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("CSV row %d: bad %s %q", rowNum, colDeliverMethod, v)
			}
			rec.DeliverMethod = &m
		}

		for _, c := range []string{colCat1, colCat2, colCat3} {
			if v := field(row, c); v != "" {
				rec.CategoryPath = append(rec.CategoryPath, v)
			}
		}

		for i := 1; i <= 9; i++ {
			if v := field(row, colHeadImgPrefix+strconv.Itoa(i)); v != "" {
				rec.Images = append(rec.Images, v)
			}
		}
		for i := 1; i <= 3; i++ {
			if v := field(row, colDescImgPrefix+strconv.Itoa(i)); v != "" {
				rec.DetailImages = append(rec.DetailImages, v)
			}
		}

		if v := field(row, colSKUPrice); v != "" {
			price, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("CSV row %d: bad %s %q", rowNum, colSKUPrice, v)
			}
			sku := SKU{Price: price, OutSKUID: field(row, colSKUCode)}
			if s := field(row, colSKUStock); s != "" {
				if sku.StockNum, err = strconv.Atoi(s); err != nil {
					return nil, fmt.Errorf("CSV row %d: bad %s %q", rowNum, colSKUStock, s)
				}
			}
			rec.Price = price
			rec.Stock = sku.StockNum
			rec.SKUs = []SKU{sku}
		}

		records = append(records, rec)
	}

	slog.Debug("Loaded CSV dataset", "path", l.path, "records", len(records))
	return records, nil
}

// LoadSample reads at most limit records, useful for dry runs.
func (l *Loader) LoadSample(limit int) ([]Record, error) {
	records, err := l.Load()
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
