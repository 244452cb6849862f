package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shoptools/shoppush/internal/uploader"
)

func sampleAttempts() []uploader.Attempt {
	return []uploader.Attempt{
		{Index: 0, Title: "保温杯", Outcome: uploader.OutcomeSuccess, ProductID: "pid-1"},
		{Index: 1, Title: "蓝牙耳机", Outcome: uploader.OutcomeFailed, ErrCode: 10020052, ErrMsg: "not found"},
		{Index: 2, Title: "拖把", Outcome: uploader.OutcomeSuccess, ProductID: "pid-3"},
		{Index: 3, Title: "坏记录", Outcome: uploader.OutcomeRejected, ErrMsg: "invalid record"},
		{Index: 4, Title: "音箱", Outcome: uploader.OutcomeExhausted, ErrCode: 45009, ErrMsg: "freq limit"},
	}
}

func TestAggregate(t *testing.T) {
	now := time.Now()
	r := Aggregate(sampleAttempts(), 3*time.Second, now)

	if r.Total != 5 {
		t.Errorf("Expected Total=5, got %d", r.Total)
	}
	if r.Succeeded != 2 {
		t.Errorf("Expected Succeeded=2, got %d", r.Succeeded)
	}
	if r.Failed != 3 {
		t.Errorf("Expected Failed=3, got %d", r.Failed)
	}
	if r.SuccessRate != 40 {
		t.Errorf("Expected SuccessRate=40, got %v", r.SuccessRate)
	}
	if r.Duration != 3*time.Second || !r.GeneratedAt.Equal(now) {
		t.Errorf("Unexpected metadata: %+v", r)
	}
	if len(r.Items) != 5 || r.Items[1].Index != 1 {
		t.Errorf("Expected items in input order")
	}
}

func TestAggregateDeterministic(t *testing.T) {
	now := time.Now()
	a := Aggregate(sampleAttempts(), time.Second, now)
	b := Aggregate(sampleAttempts(), time.Second, now)

	if a.Succeeded != b.Succeeded || a.Failed != b.Failed || a.SuccessRate != b.SuccessRate {
		t.Errorf("Aggregate not deterministic: %+v vs %+v", a, b)
	}
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil, 0, time.Now())

	if r.Total != 0 || r.SuccessRate != 0 {
		t.Errorf("Unexpected empty report: %+v", r)
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{100, "优秀"},
		{95, "优秀"},
		{94.9, "良好"},
		{80, "良好"},
		{79.9, "一般"},
		{60, "一般"},
		{59.9, "较差"},
		{0, "较差"},
	}

	for _, tt := range tests {
		r := &Report{SuccessRate: tt.rate}
		if got := r.Rating(); got != tt.want {
			t.Errorf("Rating at %.1f%% = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestErrCodeTally(t *testing.T) {
	r := Aggregate(sampleAttempts(), time.Second, time.Now())
	tally := r.errCodeTally()

	if tally[10020052] != 1 || tally[45009] != 1 || tally[0] != 1 {
		t.Errorf("Unexpected tally: %v", tally)
	}
}

func TestSaveJSONRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "upload.json")
	r := Aggregate(sampleAttempts(), time.Second, time.Now())

	if err := r.SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded Report
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Report file is not valid JSON: %v", err)
	}
	if loaded.Total != r.Total || loaded.Succeeded != r.Succeeded || len(loaded.Items) != len(r.Items) {
		t.Errorf("Roundtrip mismatch: %+v", loaded)
	}
}

func TestSaveText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_report.txt")
	r := Aggregate(sampleAttempts(), time.Second, time.Now())

	if err := r.SaveText(path); err != nil {
		t.Fatalf("SaveText failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{"商品总数: 5", "上传成功: 2", "上传评级: 较差", "失败商品详情", "蓝牙耳机"} {
		if !strings.Contains(text, want) {
			t.Errorf("Report missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "pid-1") {
		t.Error("Successful records should not appear in the failure details")
	}
}

func TestSaveYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.yaml")
	r := Aggregate(sampleAttempts(), time.Second, time.Now())

	if err := r.SaveYAML(path); err != nil {
		t.Fatalf("SaveYAML failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded map[string]any
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Report file is not valid YAML: %v", err)
	}
	if loaded["total"] != 5 {
		t.Errorf("Unexpected total: %v", loaded["total"])
	}
}
