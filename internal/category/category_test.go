package category

import (
	"reflect"
	"testing"
	"time"
)

func TestSnapshotPath(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name   string
		leafID string
		want   []string
		ok     bool
	}{
		{name: "valid leaf", leafID: "111", want: []string{"1", "11", "111"}, ok: true},
		{name: "unknown id", leafID: "999", ok: false},
		{name: "not a leaf", leafID: "11", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snap.Path(tt.leafID)
			if ok != tt.ok {
				t.Fatalf("Path(%q) ok = %v, want %v", tt.leafID, ok, tt.ok)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Path(%q) = %v, want %v", tt.leafID, got, tt.want)
			}
		})
	}
}

func TestSnapshotPathBrokenChain(t *testing.T) {
	// Leaf whose parent is missing from the snapshot.
	snap := NewSnapshot([]Entry{
		{ID: "9", Level: 1, Label: "root"},
		{ID: "991", ParentID: "99", Level: 3, Label: "orphan"},
	}, time.Now())

	if _, ok := snap.Path("991"); ok {
		t.Error("Expected broken ancestor chain to fail")
	}
}

func TestSnapshotFullLabel(t *testing.T) {
	snap := testSnapshot()

	if got := snap.FullLabel("111"); got != "家居用品-厨房用具-保温杯" {
		t.Errorf("FullLabel(111) = %q", got)
	}
	if got := snap.FullLabel("11"); got != "" {
		t.Errorf("Expected empty label for non-leaf, got %q", got)
	}
}

func TestSnapshotValid(t *testing.T) {
	now := time.Now()
	ttl := 24 * time.Hour

	fresh := NewSnapshot([]Entry{{ID: "1", Level: 1}}, now.Add(-time.Hour))
	if !fresh.Valid(ttl, now) {
		t.Error("Expected fresh snapshot to be valid")
	}

	expired := NewSnapshot([]Entry{{ID: "1", Level: 1}}, now.Add(-25*time.Hour))
	if expired.Valid(ttl, now) {
		t.Error("Expected expired snapshot to be invalid")
	}

	empty := NewSnapshot(nil, now)
	if empty.Valid(ttl, now) {
		t.Error("Expected empty snapshot to be invalid")
	}
}

func TestSnapshotLeaves(t *testing.T) {
	leaves := testSnapshot().Leaves()
	want := map[string]bool{"111": true, "112": true, "121": true, "211": true, "212": true}
	if len(leaves) != len(want) {
		t.Fatalf("Expected %d leaves, got %d", len(want), len(leaves))
	}
	for _, leaf := range leaves {
		if !want[leaf.ID] {
			t.Errorf("Unexpected leaf %s", leaf.ID)
		}
	}
}
