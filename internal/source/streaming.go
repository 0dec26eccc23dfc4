package source

// streaming.go normalises the byte stream before it reaches the CSV decoder:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by spreadsheet exports is dropped
//   - invalid UTF-8 bytes are replaced with '?' so the decoder never sees them
//   - bytes are counted for progress logging
//
// Memory use stays O(buffer size) regardless of file size.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after the BOM, if the stream starts with one.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' as data streams through.
// A multi-byte rune split across two underlying reads is held back until it
// is complete.
type utf8Sanitizer struct {
	r    io.Reader
	buf  []byte
	out  []byte // sanitised bytes not yet handed to the caller
	tail []byte // incomplete rune carried into the next fill
	err  error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, buf: make([]byte, 4096)}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *utf8Sanitizer) fill() {
	n := copy(s.buf, s.tail)
	s.tail = nil

	m, err := s.r.Read(s.buf[n:])
	n += m
	data := s.buf[:n]

	if err == nil {
		if k := incompleteSuffix(data); k > 0 {
			s.tail = data[n-k:]
			data = data[:n-k]
		}
	}

	replaceInvalidUTF8(data)
	s.out = data
	s.err = err
}

// incompleteSuffix returns how many trailing bytes form the start of a rune
// that has not been fully read yet.
func incompleteSuffix(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		start := len(data) - i
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if !utf8.FullRune(data[start:]) {
			return i
		}
		return 0
	}
	return 0
}

// replaceInvalidUTF8 rewrites invalid bytes in place. The replacement is one
// byte wide so the slice length never changes.
func replaceInvalidUTF8(data []byte) {
	if utf8.Valid(data) {
		return
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[i] = '?'
		}
		i += size
	}
}

// countingReader tracks how many bytes have been consumed.
type countingReader struct {
	r    io.Reader
	read int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	return n, err
}

// wrapForDecoding applies BOM skipping, then sanitising, then counting.
func wrapForDecoding(r io.Reader) *countingReader {
	return &countingReader{r: newUTF8Sanitizer(skipBOM(r))}
}
