package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	siftErrors "github.com/teilomillet/sift/errors"
)

type pageRequest struct {
	Query string `json:"query" validate:"required"`
	Start int    `json:"start" validate:"min=1"`
	Num   int    `json:"num" validate:"min=1,max=10"`
}

func newPost(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeAndValidateKeepsDefaults(t *testing.T) {
	req := pageRequest{Start: 1, Num: 10}
	err := DecodeAndValidate(newPost(`{"query": "golang"}`), &req)
	require.Nil(t, err)
	assert.Equal(t, pageRequest{Query: "golang", Start: 1, Num: 10}, req)
}

func TestDecodeAndValidateOverridesDefaults(t *testing.T) {
	req := pageRequest{Start: 1, Num: 10}
	err := DecodeAndValidate(newPost(`{"query": "golang", "start": 21, "num": 3}`), &req)
	require.Nil(t, err)
	assert.Equal(t, 21, req.Start)
	assert.Equal(t, 3, req.Num)
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "query=golang"},
		{"wrong type", `{"query": 5}`},
		{"truncated", `{"query": "go`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req pageRequest
			err := DecodeJSON(newPost(tt.body), &req)
			require.NotNil(t, err)
			assert.Equal(t, siftErrors.InvalidRequestError, err.Type)
			assert.Equal(t, http.StatusBadRequest, err.Code)
			assert.Equal(t, "Invalid request body", err.Message)
		})
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&pageRequest{Start: 0, Num: 11})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Equal(t, "Request validation failed", err.Message)

	details, ok := err.Details["errors"].([]ValidationErrorDetail)
	require.True(t, ok)

	fields := make(map[string]ValidationErrorDetail)
	for _, d := range details {
		fields[d.Field] = d
	}
	require.Len(t, fields, 3)
	assert.Equal(t, "required_validation_failed", fields["query"].Code)
	assert.Equal(t, "field 'query' is required", fields["query"].Message)
	assert.Equal(t, "min_validation_failed", fields["start"].Code)
	assert.Equal(t, "num must be at most 10", fields["num"].Message)
	assert.Equal(t, "11", fields["num"].Value)
}

func TestStructValid(t *testing.T) {
	assert.Nil(t, Struct(&pageRequest{Query: "q", Start: 1, Num: 1}))
}
