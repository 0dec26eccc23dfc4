package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/productimport/internal/product"
)

// ErrSourceUnavailable marks errors that make the whole input unusable.
var ErrSourceUnavailable = errors.New("source unavailable")

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, op, err)
}

// HeaderIndex maps lowercase column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
// When a column name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanHeader(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanHeader removes whitespace and stray quotes around a header cell.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// Missing returns the required columns the index does not contain.
func (h HeaderIndex) Missing(required []string) []string {
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Reader yields one RawRecord per data row. It is a single forward pass:
// once Next returns io.EOF the reader is exhausted.
type Reader struct {
	csv     *csv.Reader
	counter *countingReader
	closer  io.Closer
	header  []string
	index   HeaderIndex
	size    int64
	done    bool
}

// NewReader reads and validates the header row of r. size is the total byte
// count when known (0 otherwise) and is used only for progress reporting.
func NewReader(r io.Reader, size int64, delimiter rune) (*Reader, error) {
	counter := wrapForDecoding(r)

	cr := csv.NewReader(counter)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, unavailable("read header", errors.New("empty file"))
	}
	if err != nil {
		return nil, unavailable("read header", err)
	}

	header = append([]string(nil), header...)
	idx := MakeHeaderIndex(header)
	if missing := idx.Missing(product.RequiredColumns); len(missing) > 0 {
		return nil, unavailable("read header",
			fmt.Errorf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	return &Reader{
		csv:     cr,
		counter: counter,
		header:  header,
		index:   idx,
		size:    size,
	}, nil
}

// Next returns the next record, or io.EOF when the input is exhausted.
// Decode errors are wrapped in ErrSourceUnavailable.
func (r *Reader) Next() (product.RawRecord, error) {
	if r.done {
		return product.RawRecord{}, io.EOF
	}

	row, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return product.RawRecord{}, io.EOF
	}
	if err != nil {
		r.done = true
		return product.RawRecord{}, unavailable("decode row", err)
	}

	line, _ := r.csv.FieldPos(0)
	fields := make(map[string]string, len(r.index))
	for col, pos := range r.index {
		if pos < len(row) {
			fields[col] = row[pos]
		} else {
			fields[col] = ""
		}
	}

	return product.RawRecord{Line: line, Fields: fields}, nil
}

// Header returns the header row as read from the file.
func (r *Reader) Header() []string {
	return r.header
}

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.counter.read
}

// Size returns the total input size, or 0 when it is unknown.
func (r *Reader) Size() int64 {
	return r.size
}

// Close releases the underlying file or object body.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
