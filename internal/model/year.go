package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// FiscalYear is a federal fiscal year such as 2021.
type FiscalYear int

// String returns the four-digit year.
func (y FiscalYear) String() string {
	return strconv.Itoa(int(y))
}

// ErrYearOutOfRange is returned when a fiscal year is not in the supported range.
var ErrYearOutOfRange = eris.New("fiscal year out of range")

// YearRange is the closed set of selectable fiscal years.
type YearRange struct {
	Min FiscalYear `json:"min"`
	Max FiscalYear `json:"max"`
}

// Contains reports whether y is inside the range (inclusive on both ends).
func (r YearRange) Contains(y FiscalYear) bool {
	return y >= r.Min && y <= r.Max
}

// Years enumerates the range in ascending order.
func (r YearRange) Years() []FiscalYear {
	if r.Max < r.Min {
		return nil
	}
	out := make([]FiscalYear, 0, int(r.Max-r.Min)+1)
	for y := r.Min; y <= r.Max; y++ {
		out = append(out, y)
	}
	return out
}

// Check returns ErrYearOutOfRange (wrapped with the offending value) when y is outside r.
func (r YearRange) Check(y FiscalYear) error {
	if !r.Contains(y) {
		return eris.Wrapf(ErrYearOutOfRange, "%d not in %d..%d", y, r.Min, r.Max)
	}
	return nil
}

// ParseFiscalYear converts user input into a FiscalYear inside r.
func ParseFiscalYear(s string, r YearRange) (FiscalYear, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, eris.Wrapf(err, "parse fiscal year %q", s)
	}
	y := FiscalYear(n)
	if err := r.Check(y); err != nil {
		return 0, err
	}
	return y, nil
}
