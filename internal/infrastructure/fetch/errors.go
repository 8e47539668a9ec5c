package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"github.com/turtacn/fishlwr/pkg/errors"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindHTTPStatus  Kind = "http_status"
	KindConnection  Kind = "connection"
	KindCircuitOpen Kind = "circuit_open"
	KindParse       Kind = "parse"
	KindTooLarge    Kind = "too_large"
)

// FetchError describes why a document could not be retrieved.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// hostHealthy reports whether the failure says nothing about the health of
// the remote host: a 4xx answer or an oversized document.  Those do not trip
// the breaker.
func (e *FetchError) hostHealthy() bool {
	if e.Kind == KindTooLarge {
		return true
	}
	return e.Kind == KindHTTPStatus && e.StatusCode >= 400 && e.StatusCode < 500
}

var kindCodes = map[Kind]errors.ErrorCode{
	KindTimeout:     errors.ErrCodeFetchTimeout,
	KindHTTPStatus:  errors.ErrCodeFetchHTTPStatus,
	KindConnection:  errors.ErrCodeFetchConnection,
	KindCircuitOpen: errors.ErrCodeFetchCircuit,
	KindParse:       errors.ErrCodeFetchParse,
	KindTooLarge:    errors.ErrCodeFetchTooLarge,
}

// toAppError wraps fe in an AppError carrying the matching FET_* code.
func toAppError(fe *FetchError) error {
	return errors.Wrap(fe, kindCodes[fe.Kind], errors.DefaultMessageForCode(kindCodes[fe.Kind])).WithDetail(fe.URL)
}

// AsFetchError extracts the FetchError from err's chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// classify maps a transport error onto a Kind.
func classify(ctx context.Context, err error) Kind {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnection
}

//Personal.AI order the ending
