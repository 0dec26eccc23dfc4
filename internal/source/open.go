package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Options controls how a source is opened and decoded.
type Options struct {
	// Delimiter is "auto", "comma", "tab", "semicolon", "pipe" or a single
	// character. "auto" (or empty) picks tab for .tsv/.tab files, comma otherwise.
	Delimiter string

	// MaxFileSize rejects larger inputs up front. Zero disables the check.
	MaxFileSize int64

	S3 S3Options
}

// Open opens a local file or an s3:// object and reads its header.
// The caller must Close the returned Reader.
func Open(ctx context.Context, location string, opts Options) (*Reader, error) {
	delim, err := ParseDelimiter(opts.Delimiter, location)
	if err != nil {
		return nil, unavailable("open "+location, err)
	}

	var (
		body io.ReadCloser
		size int64
	)
	if IsS3URL(location) {
		bucket, key, ok := ParseS3URL(location)
		if !ok {
			return nil, unavailable("open "+location, fmt.Errorf("invalid s3 url, want s3://bucket/key"))
		}
		body, size, err = openS3(ctx, bucket, key, opts.S3)
	} else {
		body, size, err = openFile(location)
	}
	if err != nil {
		return nil, unavailable("open "+location, err)
	}

	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		body.Close()
		return nil, unavailable("open "+location,
			fmt.Errorf("file too large: %d bytes exceeds limit of %d", size, opts.MaxFileSize))
	}

	r, err := NewReader(body, size, delim)
	if err != nil {
		body.Close()
		return nil, err
	}
	r.closer = body
	return r, nil
}

func openFile(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%s is a directory", path)
	}
	return f, info.Size(), nil
}

// ParseDelimiter resolves a delimiter setting for the given location.
func ParseDelimiter(setting, location string) (rune, error) {
	if setting == "\t" {
		return '\t', nil
	}

	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "", "auto":
		switch strings.ToLower(filepath.Ext(location)) {
		case ".tsv", ".tab":
			return '\t', nil
		default:
			return ',', nil
		}
	case "comma":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}

	if utf8.RuneCountInString(setting) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q", setting)
	}
	r, _ := utf8.DecodeRuneInString(setting)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", setting)
	}
	return r, nil
}
