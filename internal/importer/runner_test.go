package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/productimport/internal/logging"
	"github.com/JonMunkholm/productimport/internal/product"
	"github.com/JonMunkholm/productimport/internal/source"
	"github.com/JonMunkholm/productimport/internal/store"
)

var fixedNow = time.Date(2025, 2, 10, 21, 0, 55, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeCreator records every draft and fails for names listed in failOn.
type fakeCreator struct {
	calls  []product.Draft
	failOn map[string]error
	nextID int64
}

func (f *fakeCreator) Create(_ context.Context, d product.Draft) (product.Product, error) {
	f.calls = append(f.calls, d)
	if err, ok := f.failOn[d.Name]; ok {
		return product.Product{}, err
	}
	f.nextID++
	return product.Product{ID: f.nextID, Draft: d, CreatedAt: fixedNow}, nil
}

// blockingCreator waits for its context to end.
type blockingCreator struct{}

func (blockingCreator) Create(ctx context.Context, _ product.Draft) (product.Product, error) {
	<-ctx.Done()
	return product.Product{}, ctx.Err()
}

// sliceSource yields records from memory, then an optional error, then io.EOF.
type sliceSource struct {
	records []product.RawRecord
	err     error
	pos     int
}

func (s *sliceSource) Next() (product.RawRecord, error) {
	if s.pos < len(s.records) {
		rec := s.records[s.pos]
		s.pos++
		return rec, nil
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return product.RawRecord{}, err
	}
	return product.RawRecord{}, io.EOF
}

func rec(line int, name, price, stock, discontinued string) product.RawRecord {
	return product.RawRecord{Line: line, Fields: map[string]string{
		product.ColumnName:         name,
		product.ColumnDescription:  "Description of " + strings.ToLower(name),
		product.ColumnPrice:        price,
		product.ColumnStockLevel:   stock,
		product.ColumnDiscontinued: discontinued,
	}}
}

func fourRecords() *sliceSource {
	return &sliceSource{records: []product.RawRecord{
		rec(2, "Product 1", "10.00", "15", "no"),
		rec(3, "Product 2", "3.00", "5", "no"),
		rec(4, "Product 3", "1500.00", "10", "no"),
		rec(5, "Product 4", "20.00", "2", "yes"),
	}}
}

func TestRun_Commit(t *testing.T) {
	creator := &fakeCreator{}
	var out bytes.Buffer
	r := NewRunner(creator, ModeCommit, WithOutput(&out), WithClock(fixedClock))

	summary, err := r.Run(context.Background(), fourRecords())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 4, summary.Total())
	assert.Equal(t, ModeCommit, summary.Mode)

	require.Len(t, creator.calls, 2)
	assert.Equal(t, product.Draft{
		Name:        "Product 1",
		Description: "Description of product 1",
		StockLevel:  15,
		Price:       10.00,
	}, creator.calls[0])
	assert.Nil(t, creator.calls[0].DiscontinuedAt)

	assert.Equal(t, "Product 4", creator.calls[1].Name)
	require.NotNil(t, creator.calls[1].DiscontinuedAt)
	assert.Equal(t, fixedNow, *creator.calls[1].DiscontinuedAt)

	assert.Empty(t, out.String(), "a clean commit run prints no diagnostics")
}

func TestRun_DryRun(t *testing.T) {
	creator := &fakeCreator{}
	var out bytes.Buffer
	r := NewRunner(creator, ModeDryRun, WithOutput(&out), WithClock(fixedClock))

	summary, err := r.Run(context.Background(), fourRecords())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, creator.calls, "dry run must not persist")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `Test mode: {"name":"Product 1","description":"Description of product 1","stock_level":15,"price":10,"discontinued_at":null}`, lines[0])
	assert.Contains(t, lines[1], `"name":"Product 4"`)
	assert.Contains(t, lines[1], `"discontinued_at":"2025-02-10T21:00:55Z"`)
}

func TestRun_DryRunWithoutCreator(t *testing.T) {
	r := NewRunner(nil, ModeDryRun, WithOutput(io.Discard))

	summary, err := r.Run(context.Background(), fourRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Success)
}

func TestRun_CommitWithoutCreator(t *testing.T) {
	r := NewRunner(nil, ModeCommit)

	_, err := r.Run(context.Background(), fourRecords())
	assert.ErrorIs(t, err, ErrNoCreator)
}

func TestRun_CreateFailureIsIsolated(t *testing.T) {
	dup := &store.Error{
		Kind: store.KindConstraint,
		Name: "Product 1",
		Err:  &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
	}
	creator := &fakeCreator{failOn: map[string]error{"Product 1": dup}}
	metrics := NewMetrics()
	var out bytes.Buffer
	r := NewRunner(creator, ModeCommit, WithOutput(&out), WithClock(fixedClock), WithMetrics(metrics))

	summary, err := r.Run(context.Background(), fourRecords())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.Total(), "counters sum to rows consumed")
	assert.Len(t, creator.calls, 2, "rows after the failure are still processed")

	assert.Equal(t, "Failed to import product: Product 1\n", out.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CreateFailures.WithLabelValues("constraint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(OutcomeSkipped)))
}

func TestRun_UntypedCreateErrorCounted(t *testing.T) {
	creator := &fakeCreator{failOn: map[string]error{
		"Product 1": errors.New("dial tcp: connection refused"),
		"Product 4": errors.New("boom"),
	}}
	metrics := NewMetrics()
	r := NewRunner(creator, ModeCommit, WithOutput(io.Discard), WithMetrics(metrics))

	summary, err := r.Run(context.Background(), fourRecords())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Success)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CreateFailures.WithLabelValues("connectivity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CreateFailures.WithLabelValues("unknown")))
}

func TestRun_CreateTimeout(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(blockingCreator{}, ModeCommit, WithOutput(&out), WithCreateTimeout(10*time.Millisecond))

	src := &sliceSource{records: []product.RawRecord{rec(2, "Slow", "10", "10", "no")}}
	summary, err := r.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "Failed to import product: Slow")
}

func TestRun_SourceErrorStopsRun(t *testing.T) {
	src := fourRecords()
	src.err = errors.New("decode row: bare quote")
	creator := &fakeCreator{}
	r := NewRunner(creator, ModeCommit, WithOutput(io.Discard))

	summary, err := r.Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bare quote")
	assert.Equal(t, 4, summary.Total(), "rows before the error were processed")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	creator := &fakeCreator{}
	r := NewRunner(creator, ModeCommit, WithOutput(io.Discard))

	summary, err := r.Run(ctx, fourRecords())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total())
	assert.Empty(t, creator.calls)
}

func TestRun_CarriesRunIDAndDuration(t *testing.T) {
	ticks := []time.Time{fixedNow, fixedNow.Add(1500 * time.Millisecond)}
	clock := func() time.Time {
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}

	ctx := logging.WithRunID(context.Background(), "run-42")
	r := NewRunner(nil, ModeDryRun, WithOutput(io.Discard), WithClock(clock))

	summary, err := r.Run(ctx, &sliceSource{records: []product.RawRecord{rec(2, "Cheap", "1", "1", "no")}})
	require.NoError(t, err)

	assert.Equal(t, "run-42", summary.RunID)
	assert.Equal(t, fixedNow, summary.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, summary.Duration)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRun_EndToEndFromCSV(t *testing.T) {
	csv := "name,description,price,stock_level,discontinued\n" +
		"Product 1,Description of product 1,10.00,15,no\n" +
		"Product 2,Description of product 2,3.00,5,no\n" +
		"Product 3,Description of product 3,1500.00,10,no\n" +
		"Product 4,Description of product 4,20.00,2,yes\n"

	rows, err := source.NewReader(strings.NewReader(csv), int64(len(csv)), ',')
	require.NoError(t, err)

	creator := &fakeCreator{}
	r := NewRunner(creator, ModeCommit, WithOutput(io.Discard), WithClock(fixedClock))

	summary, err := r.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "Import Summary:\nTotal Records Processed: 4\nSuccess: 2\nSkipped: 2\nFailed: 0\n", FormatText(summary))
	require.Len(t, creator.calls, 2)
	assert.Equal(t, "Product 1", creator.calls[0].Name)
	assert.Equal(t, "Product 4", creator.calls[1].Name)
}

// captureLogs routes the default slog logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRun_ProgressInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		want     int
	}{
		{"every two rows", 2, 2},
		{"every row", 1, 4},
		{"larger than input", 10, 0},
		{"disabled", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			r := NewRunner(&fakeCreator{}, ModeCommit, WithOutput(io.Discard), WithProgressInterval(tt.interval))

			summary, err := r.Run(context.Background(), fourRecords())
			require.NoError(t, err)
			assert.Equal(t, 4, summary.Total())
			assert.Equal(t, tt.want, strings.Count(logs.String(), "msg=\"import progress\""))
		})
	}
}

func TestRun_ProgressReportsPercentForSizedSource(t *testing.T) {
	csv := "name,description,price,stock_level,discontinued\n" +
		"Product 1,Description of product 1,10.00,15,no\n" +
		"Product 2,Description of product 2,20.00,15,no\n"

	rows, err := source.NewReader(strings.NewReader(csv), int64(len(csv)), ',')
	require.NoError(t, err)

	logs := captureLogs(t)
	r := NewRunner(&fakeCreator{}, ModeCommit, WithOutput(io.Discard), WithProgressInterval(2))

	_, err = r.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "percent=")
}

func TestNewRunner_DefaultProgressInterval(t *testing.T) {
	r := NewRunner(nil, ModeDryRun)
	assert.Equal(t, DefaultProgressInterval, r.progressEvery)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "commit", ModeCommit.String())
	assert.Equal(t, "dry-run", ModeDryRun.String())
}
