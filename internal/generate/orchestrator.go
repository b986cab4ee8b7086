package generate

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/docweaver/docweaver/internal/order"
	"github.com/docweaver/docweaver/internal/snippet"
)

// Options control the orchestrator.
type Options struct {
	Concurrency       int
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCeiling    time.Duration
	RequestsPerSecond float64
	BatchSize         int
	OnlyIDs           []string // restrict generation to these entity IDs
}

// Summary counts terminal statuses across the run, including results carried
// over from a resumed checkpoint.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", s.Succeeded, s.Skipped, s.Failed)
}

// Run drives the generator over the snippets in processing order. Snippets
// with a checkpointed success are not re-issued. Batches are dispatched as
// sequential windows; within a batch, workers run concurrently up to the
// configured limit with at most one in-flight call per snippet. One
// snippet's permanent failure never aborts the run; cancellation stops new
// dispatch but lets in-flight calls finish and persist their result.
func Run(ctx context.Context, ord *order.Order, set *snippet.Set, gen Generator, store *ResultStore, opts Options) (Summary, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffCeiling <= 0 {
		opts.BackoffCeiling = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}

	byID := set.ByID()

	done, err := store.Succeeded()
	if err != nil {
		return Summary{}, err
	}

	var only map[string]bool
	if len(opts.OnlyIDs) > 0 {
		only = make(map[string]bool, len(opts.OnlyIDs))
		for _, id := range opts.OnlyIDs {
			only[id] = true
		}
	}

	// Resolve each snippet's terminal status up front where possible; what
	// remains is the pending work, in processing order.
	var pending []snippet.Snippet
	for _, id := range ord.IDs {
		i, ok := byID[id]
		if !ok {
			if err := store.Save(Result{ID: id, Status: StatusSkipped, ErrorDetail: "no snippet extracted"}); err != nil {
				return Summary{}, err
			}
			continue
		}
		sn := set.Snippets[i]

		switch {
		case done[id]:
			// checkpointed from a previous run
		case sn.Skipped:
			if err := store.Save(Result{ID: id, Status: StatusSkipped, ErrorDetail: sn.SkipReason}); err != nil {
				return Summary{}, err
			}
		case only != nil && !only[id]:
			if err := store.Save(Result{ID: id, Status: StatusSkipped, ErrorDetail: "not selected"}); err != nil {
				return Summary{}, err
			}
		default:
			pending = append(pending, sn)
		}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	var runErr error
	for start := 0; start < len(pending); start += opts.BatchSize {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		end := start + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)

		for _, sn := range pending[start:end] {
			sn := sn
			g.Go(func() error {
				res, err := process(gctx, sn, gen, limiter, opts)
				if err != nil {
					// Cancelled before a terminal status: leave the snippet
					// unwritten so a resumed run re-issues it.
					return nil
				}
				if res.Status == StatusFailed {
					log.Printf("WARNING: generation for %s failed after %d attempts: %s",
						sn.ID, res.Attempts, res.ErrorDetail)
				}
				return store.Save(res)
			})
		}

		if err := g.Wait(); err != nil {
			return Summary{}, err
		}
	}

	summary, err := summarize(store, ord)
	if err != nil {
		return Summary{}, err
	}
	return summary, runErr
}

// process runs the bounded retry loop for one snippet. The returned error is
// non-nil only when cancellation interrupted the loop before a terminal
// status; transient exhaustion and permanent errors yield a failed Result.
// The synthesis call itself runs on a detached context so a call already in
// flight at cancellation finishes and its result is persisted.
func process(ctx context.Context, sn snippet.Snippet, gen Generator, limiter *rate.Limiter, opts Options) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return Result{}, err
		}

		text, err := gen.Generate(context.WithoutCancel(ctx), sn)
		if err == nil {
			return Result{ID: sn.ID, Status: StatusSuccess, Text: text, Attempts: attempt}, nil
		}
		lastErr = err

		if !isTransient(err) {
			return Result{ID: sn.ID, Status: StatusFailed, Attempts: attempt, ErrorDetail: err.Error()}, nil
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, backoffDelay(attempt, opts.BackoffBase, opts.BackoffCeiling)); err != nil {
			return Result{}, err
		}
	}

	return Result{
		ID:          sn.ID,
		Status:      StatusFailed,
		Attempts:    opts.MaxAttempts,
		ErrorDetail: lastErr.Error(),
	}, nil
}

// summarize counts terminal statuses for the ordered IDs.
func summarize(store *ResultStore, ord *order.Order) (Summary, error) {
	all, err := store.All()
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, id := range ord.IDs {
		switch all[id].Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s, nil
}
