package obligations

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a page could not be turned into a dataset.
type ErrorKind int

const (
	// KindTransport covers network failures and non-2xx responses.
	KindTransport ErrorKind = iota + 1
	// KindParse means the body was not valid JSON.
	KindParse
	// KindShape means the body was valid JSON without a usable results field.
	KindShape
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// FetchError wraps a failure from Client.Fetch with its kind and year.
type FetchError struct {
	Kind ErrorKind
	Year int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("obligations: fy%d %s failure: %v", e.Year, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsLenient reports whether err is the "reachable but no data" case that the
// controller treats as an empty, successful load.
func IsLenient(err error) bool {
	return KindOf(err) == KindShape
}
