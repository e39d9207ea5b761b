package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Amount
	}{
		{name: "string", json: `"1000.00"`, want: "1000.00"},
		{name: "number", json: `250.5`, want: "250.5"},
		{name: "exponent", json: `1e3`, want: "1e3"},
		{name: "null", json: `null`, want: ""},
		{name: "bool kept verbatim", json: `true`, want: "true"},
		{name: "non-numeric string", json: `"abc"`, want: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.json), &a))
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestObligationPage_Results(t *testing.T) {
	var page ObligationPage
	require.NoError(t, json.Unmarshal([]byte(`{"results":[{"account_title":"Salaries","obligated_amount":"1000.00"}]}`), &page))
	require.NotNil(t, page.Results)
	require.Len(t, *page.Results, 1)
	assert.Equal(t, "Salaries", (*page.Results)[0].AccountTitle)
	assert.Equal(t, Amount("1000.00"), (*page.Results)[0].ObligatedAmount)

	var missing ObligationPage
	require.NoError(t, json.Unmarshal([]byte(`{"page_metadata":{}}`), &missing))
	assert.Nil(t, missing.Results)

	var null ObligationPage
	require.NoError(t, json.Unmarshal([]byte(`{"results":null}`), &null))
	assert.Nil(t, null.Results)

	var empty ObligationPage
	require.NoError(t, json.Unmarshal([]byte(`{"results":[]}`), &empty))
	require.NotNil(t, empty.Results)
	assert.Empty(t, *empty.Results)
}

func TestRawObligationRecord_MissingAmount(t *testing.T) {
	var rec RawObligationRecord
	require.NoError(t, json.Unmarshal([]byte(`{"account_title":"Travel"}`), &rec))
	assert.Equal(t, "Travel", rec.AccountTitle)
	assert.Equal(t, Amount(""), rec.ObligatedAmount)
}
