// Package source decodes delimited product files into a lazy sequence of
// product.RawRecord values.
//
// A source is a local path or an s3://bucket/key URL. The first row must be
// a header naming the columns; column order does not matter and header names
// are matched case-insensitively. Any failure to open the file, read its
// header or decode a row is reported as [ErrSourceUnavailable].
package source
