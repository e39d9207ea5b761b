package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRange = YearRange{Min: 2019, Max: 2025}

func TestYearRange_Contains(t *testing.T) {
	assert.True(t, testRange.Contains(2019))
	assert.True(t, testRange.Contains(2022))
	assert.True(t, testRange.Contains(2025))
	assert.False(t, testRange.Contains(2018))
	assert.False(t, testRange.Contains(2026))
}

func TestYearRange_Years(t *testing.T) {
	years := testRange.Years()
	require.Len(t, years, 7)
	assert.Equal(t, FiscalYear(2019), years[0])
	assert.Equal(t, FiscalYear(2025), years[6])

	assert.Nil(t, YearRange{Min: 2025, Max: 2019}.Years())
	assert.Equal(t, []FiscalYear{2020}, YearRange{Min: 2020, Max: 2020}.Years())
}

func TestYearRange_Check(t *testing.T) {
	assert.NoError(t, testRange.Check(2021))

	err := testRange.Check(2030)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrYearOutOfRange))
	assert.Contains(t, err.Error(), "2030 not in 2019..2025")
}

func TestParseFiscalYear(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FiscalYear
		wantErr bool
	}{
		{name: "valid", input: "2021", want: 2021},
		{name: "whitespace", input: " 2019 ", want: 2019},
		{name: "below range", input: "2018", wantErr: true},
		{name: "above range", input: "2026", wantErr: true},
		{name: "not a number", input: "twenty", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFiscalYear(tt.input, testRange)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFiscalYear_String(t *testing.T) {
	assert.Equal(t, "2024", FiscalYear(2024).String())
}
