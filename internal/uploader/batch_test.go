package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/shoptools/shoppush/internal/shop"
)

// scriptedAPI answers per out_product_id, safely from any goroutine.
type scriptedAPI struct {
	mu       sync.Mutex
	failFor  map[string]error
	inFlight int
	peak     int
}

func (s *scriptedAPI) AddProduct(ctx context.Context, req *shop.ProductRequest) (*shop.AddProductResult, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	err := s.failFor[req.OutProductID]
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &shop.AddProductResult{ProductID: "pid-" + req.OutProductID}, nil
}

func (s *scriptedAPI) RefreshCredentials(ctx context.Context) error {
	return nil
}

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		id := fmt.Sprintf("P-%d", i)
		tasks[i] = Task{
			Title:   "商品 " + id,
			Request: &shop.ProductRequest{Title: "商品 " + id, OutProductID: id},
		}
	}
	return tasks
}

func runBatch(t *testing.T, api API, tasks []Task, concurrency int) []Attempt {
	t.Helper()
	o := NewOrchestrator(api, 3, time.Millisecond)
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return NewCoordinator(o, concurrency, nil).Run(context.Background(), tasks)
}

func TestRunPreservesInputOrder(t *testing.T) {
	api := &scriptedAPI{}
	tasks := makeTasks(20)

	attempts := runBatch(t, api, tasks, 8)

	if len(attempts) != len(tasks) {
		t.Fatalf("Expected %d attempts, got %d", len(tasks), len(attempts))
	}
	for i, a := range attempts {
		if a.Index != i {
			t.Errorf("Attempt %d has index %d", i, a.Index)
		}
		if want := fmt.Sprintf("pid-P-%d", i); a.ProductID != want {
			t.Errorf("Attempt %d: expected product id %s, got %s", i, want, a.ProductID)
		}
	}
}

func TestRunSameResultsAtAnyConcurrency(t *testing.T) {
	failFor := map[string]error{
		"P-3": &shop.APIError{Code: 10020052, Message: "not found"},
		"P-7": &shop.APIError{Code: 10020052, Message: "not found"},
	}
	tasks := makeTasks(12)

	serial := runBatch(t, &scriptedAPI{failFor: failFor}, tasks, 1)
	parallel := runBatch(t, &scriptedAPI{failFor: failFor}, tasks, 8)

	for i := range serial {
		if serial[i].Outcome != parallel[i].Outcome ||
			serial[i].Title != parallel[i].Title ||
			serial[i].ProductID != parallel[i].ProductID {
			t.Errorf("Attempt %d differs between concurrency 1 and 8:\n serial: %+v\nparallel: %+v",
				i, serial[i], parallel[i])
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	api := &scriptedAPI{}
	tasks := makeTasks(30)

	runBatch(t, api, tasks, 4)

	if api.peak > 4 {
		t.Errorf("Expected at most 4 in-flight uploads, saw %d", api.peak)
	}
}

func TestRunReportsRejectedWithoutUploading(t *testing.T) {
	api := &scriptedAPI{}
	tasks := makeTasks(3)
	tasks[1] = Task{Title: "坏记录", Err: errors.New("invalid record: title must be 5-60 characters, got 2")}

	attempts := runBatch(t, api, tasks, 2)

	if attempts[1].Outcome != OutcomeRejected {
		t.Errorf("Expected rejected outcome, got %s", attempts[1].Outcome)
	}
	if attempts[1].Title != "坏记录" || attempts[1].ErrMsg == "" {
		t.Errorf("Rejected attempt incomplete: %+v", attempts[1])
	}
	if attempts[0].Outcome != OutcomeSuccess || attempts[2].Outcome != OutcomeSuccess {
		t.Errorf("Other tasks should still upload: %+v", attempts)
	}
}

func TestRunPacingGateSharedAcrossWorkers(t *testing.T) {
	api := &scriptedAPI{}
	tasks := makeTasks(4)

	interval := 20 * time.Millisecond
	o := NewOrchestrator(api, 3, time.Millisecond)
	c := NewCoordinator(o, 4, rate.NewLimiter(rate.Every(interval), 1))

	start := time.Now()
	attempts := c.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	for _, a := range attempts {
		if a.Outcome != OutcomeSuccess {
			t.Fatalf("Unexpected outcome %s", a.Outcome)
		}
	}
	// 4 uploads through a 20ms gate need at least 3 intervals.
	if min := 3 * interval; elapsed < min {
		t.Errorf("Expected pacing to stretch the batch past %s, took %s", min, elapsed)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &scriptedAPI{}
	tasks := makeTasks(3)

	o := NewOrchestrator(api, 3, time.Millisecond)
	c := NewCoordinator(o, 2, rate.NewLimiter(rate.Every(time.Hour), 1))

	attempts := c.Run(ctx, tasks)

	for i, a := range attempts {
		if a.Outcome != OutcomeCanceled {
			t.Errorf("Attempt %d: expected canceled, got %s", i, a.Outcome)
		}
	}
}
