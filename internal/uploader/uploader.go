package uploader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shoptools/shoppush/internal/shop"
)

// API is the slice of the shop client the uploader needs.
type API interface {
	AddProduct(ctx context.Context, req *shop.ProductRequest) (*shop.AddProductResult, error)
	RefreshCredentials(ctx context.Context) error
}

// Outcome is the terminal state of one record's upload.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeRejected   Outcome = "rejected"    // failed validation, never sent
	OutcomeFailed     Outcome = "failed"      // permanent API rejection
	OutcomeExhausted  Outcome = "exhausted"   // retry budget spent
	OutcomeFailedAuth Outcome = "failed_auth" // auth failed twice
	OutcomeCanceled   Outcome = "canceled"
)

// Attempt is the final result for one record, retries collapsed.
type Attempt struct {
	Index         int       `json:"index"`
	Title         string    `json:"title"`
	OutProductID  string    `json:"out_product_id,omitempty"`
	AttemptNumber int       `json:"attempts"`
	StartedAt     time.Time `json:"started_at"`
	Outcome       Outcome   `json:"outcome"`
	ErrCode       int       `json:"err_code,omitempty"`
	ErrMsg        string    `json:"err_msg,omitempty"`
	ProductID     string    `json:"product_id,omitempty"`
}

// Orchestrator uploads one record at a time, classifying failures and
// retrying within a fixed attempt budget. Retries, throttle waits and
// the single auth refresh all share the same budget.
type Orchestrator struct {
	api           API
	maxAttempts   int
	baseBackoff   time.Duration
	maxBackoff    time.Duration
	rateLimitWait time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator with the given retry budget
// and throttle wait.
func NewOrchestrator(api API, maxAttempts int, rateLimitWait time.Duration) *Orchestrator {
	return &Orchestrator{
		api:           api,
		maxAttempts:   maxAttempts,
		baseBackoff:   time.Second,
		maxBackoff:    10 * time.Second,
		rateLimitWait: rateLimitWait,
		sleep:         sleepCtx,
	}
}

// Upload pushes one record through create-product until it succeeds,
// fails permanently, or the attempt budget runs out. An auth rejection
// triggers exactly one credential refresh; a second auth rejection is
// terminal.
func (o *Orchestrator) Upload(ctx context.Context, index int, req *shop.ProductRequest) Attempt {
	attempt := Attempt{
		Index:        index,
		Title:        req.Title,
		OutProductID: req.OutProductID,
		StartedAt:    time.Now(),
	}

	refreshed := false
	for n := 1; n <= o.maxAttempts; n++ {
		attempt.AttemptNumber = n

		result, err := o.api.AddProduct(ctx, req)
		if err == nil {
			attempt.Outcome = OutcomeSuccess
			attempt.ProductID = result.ProductID
			attempt.ErrCode, attempt.ErrMsg = 0, ""
			slog.Info("Product uploaded", "index", index, "title", req.Title,
				"product_id", result.ProductID, "attempt", n)
			return attempt
		}

		attempt.ErrCode, attempt.ErrMsg = errorDetails(err)

		if ctx.Err() != nil {
			attempt.Outcome = OutcomeCanceled
			return attempt
		}

		class := shop.Classify(err)
		slog.Warn("Upload attempt failed", "index", index, "title", req.Title,
			"attempt", n, "class", class.String(), "err", err)

		switch class {
		case shop.ClassPermanent:
			attempt.Outcome = OutcomeFailed
			return attempt

		case shop.ClassAuth:
			if refreshed {
				attempt.Outcome = OutcomeFailedAuth
				return attempt
			}
			refreshed = true
			if err := o.api.RefreshCredentials(ctx); err != nil {
				slog.Error("Credential refresh failed", "index", index, "err", err)
				attempt.Outcome = OutcomeFailedAuth
				return attempt
			}

		case shop.ClassRateLimited:
			if n == o.maxAttempts {
				break
			}
			if err := o.sleep(ctx, o.rateLimitWait); err != nil {
				attempt.Outcome = OutcomeCanceled
				return attempt
			}

		case shop.ClassTransient:
			if n == o.maxAttempts {
				break
			}
			if err := o.sleep(ctx, o.backoff(n)); err != nil {
				attempt.Outcome = OutcomeCanceled
				return attempt
			}
		}
	}

	attempt.Outcome = OutcomeExhausted
	return attempt
}

// backoff returns the exponential delay after the n-th failed attempt.
func (o *Orchestrator) backoff(n int) time.Duration {
	d := o.baseBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= o.maxBackoff {
			return o.maxBackoff
		}
	}
	return d
}

func errorDetails(err error) (int, string) {
	var apiErr *shop.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message
	}
	return 0, err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
