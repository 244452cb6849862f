package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shoptools/shoppush/internal/uploader"
)

// Report is the batch summary plus per-record results in input order.
type Report struct {
	Total       int                `json:"total" yaml:"total"`
	Succeeded   int                `json:"succeeded" yaml:"succeeded"`
	Failed      int                `json:"failed" yaml:"failed"`
	SuccessRate float64            `json:"success_rate" yaml:"success_rate"`
	Duration    time.Duration      `json:"duration_ns" yaml:"duration_ns"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Items       []uploader.Attempt `json:"items" yaml:"items"`
}

// Aggregate summarizes a batch. It is a pure function of its inputs so
// the same attempts always yield the same report regardless of worker
// scheduling.
func Aggregate(attempts []uploader.Attempt, duration time.Duration, generatedAt time.Time) *Report {
	r := &Report{
		Total:       len(attempts),
		Duration:    duration,
		GeneratedAt: generatedAt,
		Items:       attempts,
	}
	for _, a := range attempts {
		if a.Outcome == uploader.OutcomeSuccess {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	if r.Total > 0 {
		r.SuccessRate = float64(r.Succeeded) / float64(r.Total) * 100
	}
	return r
}

// Rating grades the batch by success rate, platform-report style.
func (r *Report) Rating() string {
	switch {
	case r.SuccessRate >= 95:
		return "优秀"
	case r.SuccessRate >= 80:
		return "良好"
	case r.SuccessRate >= 60:
		return "一般"
	default:
		return "较差"
	}
}

// errCodeTally counts failures per API error code. Rejected records and
// transport failures carry code 0.
func (r *Report) errCodeTally() map[int]int {
	tally := make(map[int]int)
	for _, a := range r.Items {
		if a.Outcome != uploader.OutcomeSuccess {
			tally[a.ErrCode]++
		}
	}
	return tally
}

// PrintSummary writes a human-readable batch summary to stdout.
func (r *Report) PrintSummary() {
	fmt.Println("\n========================================")
	fmt.Println("Upload Summary")
	fmt.Println("========================================")
	fmt.Printf("Total Records:      %d\n", r.Total)
	fmt.Printf("Succeeded:          %d\n", r.Succeeded)
	fmt.Printf("Failed:             %d\n", r.Failed)
	fmt.Printf("Success Rate:       %.1f%% (%s)\n", r.SuccessRate, r.Rating())
	fmt.Printf("Duration:           %s\n", r.Duration.Round(time.Millisecond))

	tally := r.errCodeTally()
	if len(tally) > 0 {
		fmt.Println()
		fmt.Println("Failures by error code:")

		codes := make([]int, 0, len(tally))
		for code := range tally {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, tally[code])
		}
	}

	if r.Failed > 0 {
		fmt.Println()
		fmt.Println("Failed records:")
		for _, a := range r.Items {
			if a.Outcome == uploader.OutcomeSuccess {
				continue
			}
			fmt.Printf("  [%d] %s: %s (%s)\n", a.Index, a.Title, a.Outcome, a.ErrMsg)
		}
	}
	fmt.Println("========================================")
}

// SaveText writes the detailed human-readable report, one failed record
// per line after the summary block.
func (r *Report) SaveText(path string) error {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	b.WriteString(line + "\n")
	b.WriteString("商品上传报告\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "生成时间: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "商品总数: %d\n", r.Total)
	fmt.Fprintf(&b, "上传成功: %d\n", r.Succeeded)
	fmt.Fprintf(&b, "上传失败: %d\n", r.Failed)
	fmt.Fprintf(&b, "成功率: %.1f%%\n", r.SuccessRate)
	fmt.Fprintf(&b, "耗时: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "上传评级: %s\n", r.Rating())

	if r.Failed > 0 {
		b.WriteString("\n" + line + "\n")
		b.WriteString("失败商品详情:\n")
		for _, a := range r.Items {
			if a.Outcome == uploader.OutcomeSuccess {
				continue
			}
			fmt.Fprintf(&b, "  [%d] %s\n", a.Index, a.Title)
			fmt.Fprintf(&b, "      outcome=%s attempts=%d", a.Outcome, a.AttemptNumber)
			if a.ErrCode != 0 {
				fmt.Fprintf(&b, " errcode=%d", a.ErrCode)
			}
			b.WriteString("\n")
			if a.ErrMsg != "" {
				fmt.Fprintf(&b, "      %s\n", a.ErrMsg)
			}
		}
	}
	b.WriteString(line + "\n")

	return writeFile(path, []byte(b.String()))
}

// SaveJSON writes the full report as JSON.
func (r *Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeFile(path, data)
}

// SaveYAML writes the full report as YAML.
func (r *Report) SaveYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
