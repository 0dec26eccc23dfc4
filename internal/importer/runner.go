package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JonMunkholm/productimport/internal/logging"
	"github.com/JonMunkholm/productimport/internal/product"
	"github.com/JonMunkholm/productimport/internal/store"
)

// DefaultProgressInterval is how many rows pass between progress log entries.
const DefaultProgressInterval = 1000

// Mode selects whether kept rows are persisted.
type Mode int

const (
	ModeCommit Mode = iota
	ModeDryRun
)

func (m Mode) String() string {
	if m == ModeDryRun {
		return "dry-run"
	}
	return "commit"
}

// Creator is the persistence collaborator. Create must block until the
// product is stored or has failed.
type Creator interface {
	Create(ctx context.Context, d product.Draft) (product.Product, error)
}

// RowSource yields records in input order and io.EOF after the last one.
type RowSource interface {
	Next() (product.RawRecord, error)
}

// progressSource is implemented by sources that know how far they have read.
type progressSource interface {
	BytesRead() int64
	Size() int64
}

// ErrNoCreator is returned when a commit run has nothing to persist to.
var ErrNoCreator = errors.New("commit mode requires a product store")

// Runner executes an import. It holds no per-run state and may be reused.
type Runner struct {
	creator       Creator
	mode          Mode
	out           io.Writer
	now           func() time.Time
	metrics       *Metrics
	createTimeout time.Duration
	progressEvery int
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where console diagnostics are written (default: stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithClock replaces time.Now for discontinued_at and run timing.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithMetrics records per-row outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithCreateTimeout bounds each Create call. Zero means no bound.
func WithCreateTimeout(d time.Duration) Option {
	return func(r *Runner) { r.createTimeout = d }
}

// WithProgressInterval logs progress every n rows. Zero or less disables it.
func WithProgressInterval(n int) Option {
	return func(r *Runner) { r.progressEvery = n }
}

// NewRunner returns a Runner. creator may be nil in dry-run mode.
func NewRunner(creator Creator, mode Mode, opts ...Option) *Runner {
	r := &Runner{
		creator:       creator,
		mode:          mode,
		out:           os.Stdout,
		now:           time.Now,
		progressEvery: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes rows until io.EOF and returns the counts.
//
// A row source error or a cancelled context stops the run; the partial
// summary is returned together with the error and should not be reported.
func (r *Runner) Run(ctx context.Context, rows RowSource) (Summary, error) {
	if r.mode == ModeCommit && r.creator == nil {
		return Summary{}, ErrNoCreator
	}

	start := r.now()
	summary := Summary{
		RunID:     logging.RunIDFromContext(ctx),
		Mode:      r.mode,
		StartedAt: start,
	}
	logger := logging.WithFields(ctx, "mode", r.mode.String())

	for {
		if err := ctx.Err(); err != nil {
			summary.Duration = r.now().Sub(start)
			return summary, fmt.Errorf("import interrupted: %w", err)
		}

		rec, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Duration = r.now().Sub(start)
			return summary, err
		}

		r.process(ctx, rec, &summary)

		if n := summary.Total(); r.progressEvery > 0 && n%r.progressEvery == 0 {
			r.logProgress(ctx, rows, summary)
		}
	}

	summary.Duration = r.now().Sub(start)
	r.metrics.ObserveRun(summary)
	logger.Info("import finished",
		"total", summary.Total(),
		"success", summary.Success,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

func (r *Runner) process(ctx context.Context, rec product.RawRecord, summary *Summary) {
	logger := logging.FromContext(ctx)

	if product.ShouldSkip(rec) {
		summary.Skipped++
		r.metrics.IncOutcome(OutcomeSkipped)
		logger.Debug("record skipped", "line", rec.Line, "name", rec.Name())
		return
	}

	draft := product.BuildDraft(rec, r.now)

	if r.mode == ModeDryRun {
		r.printDraft(ctx, draft)
		summary.Success++
		r.metrics.IncOutcome(OutcomeSuccess)
		return
	}

	outcome := r.create(ctx, draft)
	if outcome.err != nil {
		summary.Failed++
		r.metrics.IncOutcome(OutcomeFailed)
		r.metrics.IncFailure(outcome.kind.String())
		fmt.Fprintf(r.out, "Failed to import product: %s\n", draft.Name)
		logger.Warn("failed to import product",
			"line", rec.Line,
			"name", draft.Name,
			"kind", outcome.kind.String(),
			"error", outcome.err,
		)
		return
	}

	summary.Success++
	r.metrics.IncOutcome(OutcomeSuccess)
	logger.Debug("product created", "line", rec.Line, "name", draft.Name, "id", outcome.product.ID)
}

// createOutcome is the result of one persistence call.
type createOutcome struct {
	product product.Product
	kind    store.ErrorKind
	err     error
}

func (r *Runner) create(ctx context.Context, d product.Draft) createOutcome {
	if r.createTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.createTimeout)
		defer cancel()
	}

	start := time.Now()
	p, err := r.creator.Create(ctx, d)
	r.metrics.ObserveCreate(time.Since(start))

	if err != nil {
		return createOutcome{kind: store.KindOf(err), err: err}
	}
	return createOutcome{product: p}
}

func (r *Runner) printDraft(ctx context.Context, d product.Draft) {
	data, err := json.Marshal(d)
	if err != nil {
		logging.FromContext(ctx).Error("encode draft", "name", d.Name, "error", err)
		return
	}
	fmt.Fprintf(r.out, "Test mode: %s\n", data)
}

func (r *Runner) logProgress(ctx context.Context, rows RowSource, summary Summary) {
	args := []any{"rows", summary.Total(), "success", summary.Success, "skipped", summary.Skipped, "failed", summary.Failed}
	if ps, ok := rows.(progressSource); ok && ps.Size() > 0 {
		args = append(args, "percent", ps.BytesRead()*100/ps.Size())
	}
	logging.FromContext(ctx).Info("import progress", args...)
}
