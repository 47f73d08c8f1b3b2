package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name string `json:"name" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a.jpg"}`))

	var out sampleRequest
	require.NoError(t, DecodeJSON(req, &out))
	assert.Equal(t, "a.jpg", out.Name)
}

func TestDecodeJSONMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))

	var out sampleRequest
	assert.Error(t, DecodeJSON(req, &out))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "a.jpg"}))
	assert.Error(t, ValidateRequest(sampleRequest{}))
}
