package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeJSONObject(t *testing.T) {
	obj, err := DecodeJSONObject[testRecord](strings.NewReader(`{"id":7,"name":"alpha"}`))
	require.NoError(t, err)
	assert.Equal(t, 7, obj.ID)
	assert.Equal(t, "alpha", obj.Name)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testRecord](strings.NewReader(`<html>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}

func TestDecodeJSONObject_Empty(t *testing.T) {
	_, err := DecodeJSONObject[testRecord](strings.NewReader(``))
	assert.Error(t, err)
}
