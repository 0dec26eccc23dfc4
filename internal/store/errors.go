package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind groups persistence failures by what went wrong.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConstraint
	KindConnectivity
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConstraint:
		return "constraint"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Error is a failed create for one product.
type Error struct {
	Kind ErrorKind
	Name string // product name
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("create product %q: %s: %v", e.Name, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a store error, or KindUnknown for any other error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Classify(err)
}

// connectivityPatterns catch driver errors that are not typed.
var connectivityPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"conn closed",
}

// Classify maps a driver error to an ErrorKind.
//
// SQLSTATE classes: 22 data exception and 23 integrity constraint violation
// are per-row problems; 08 connection exception, 53 insufficient resources
// and 57 operator intervention mean the database could not take the write.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrInvalidDraft) {
		return KindValidation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "22"):
			return KindValidation
		case strings.HasPrefix(pgErr.Code, "23"):
			return KindConstraint
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			return KindConnectivity
		}
		return KindUnknown
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return KindConnectivity
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return KindConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnectivity
	}

	msg := strings.ToLower(err.Error())
	for _, p := range connectivityPatterns {
		if strings.Contains(msg, p) {
			return KindConnectivity
		}
	}
	return KindUnknown
}
