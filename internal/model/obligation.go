package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Amount is the raw text of an obligated amount as served by the API.
// The endpoint has returned both JSON strings and bare numbers for this
// field, so both decode into the same textual form. Null decodes to "".
type Amount string

// UnmarshalJSON accepts a JSON string, number or null. Any other JSON value
// is kept verbatim so the amount parser can apply its fallback to it.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "amount: decode string")
		}
		*a = Amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			*a = Amount(data)
			return nil
		}
		*a = Amount(n.String())
		return nil
	}
}

// RawObligationRecord is one element of the API's results array.
type RawObligationRecord struct {
	AccountTitle    string `json:"account_title"`
	ObligatedAmount Amount `json:"obligated_amount"`
}

// ObligationPage is the decoded response body. Results is nil when the
// field is absent or null, and non-nil (possibly empty) otherwise.
type ObligationPage struct {
	Results *[]RawObligationRecord `json:"results"`
}

// NormalizedRecord is the display-ready form of a raw record.
type NormalizedRecord struct {
	Name        string  `json:"name" yaml:"name"`
	Value       float64 `json:"value" yaml:"value"`
	Alternative float64 `json:"alternative" yaml:"alternative"`
}

// FetchStatus describes where the controller is in its request lifecycle.
type FetchStatus string

const (
	FetchStatusIdle     FetchStatus = "idle"
	FetchStatusFetching FetchStatus = "fetching"
	FetchStatusReady    FetchStatus = "ready"
	FetchStatusFailed   FetchStatus = "failed"
)

// RequestState is the year/busy pair owned by the controller.
type RequestState struct {
	Year FiscalYear `json:"year"`
	Busy bool       `json:"busy"`
}

// Snapshot is a read-only copy of controller state handed to renderers.
// While Busy, Dataset still holds the previous load; DatasetYear says which
// year that was.
type Snapshot struct {
	Dataset      []NormalizedRecord `json:"dataset" yaml:"dataset"`
	DatasetYear  FiscalYear         `json:"dataset_year,omitempty" yaml:"dataset_year,omitempty"` // year the dataset was loaded for
	Busy         bool               `json:"busy" yaml:"busy"`
	SelectedYear FiscalYear         `json:"selected_year" yaml:"selected_year"`
	TotalValue   float64            `json:"total_value" yaml:"total_value"`
	RecordCount  int                `json:"record_count" yaml:"record_count"`
	Status       FetchStatus        `json:"status" yaml:"status"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
	RequestID    string             `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at" yaml:"updated_at"`
}
