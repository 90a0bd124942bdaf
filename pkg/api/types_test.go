package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughSentinel(t *testing.T) {
	assert.True(t, Passthrough().IsPassthrough())
	assert.False(t, (&Response{StatusCode: 200}).IsPassthrough())

	var nilResp *Response
	assert.False(t, nilResp.IsPassthrough())
}

func TestRequestJSON(t *testing.T) {
	req := &Request{Body: []byte(`{"name":"ada","age":36}`)}
	var payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	require.NoError(t, req.JSON(&payload))
	assert.Equal(t, "ada", payload.Name)
	assert.Equal(t, 36, payload.Age)
}

func TestRequestJSON_Invalid(t *testing.T) {
	req := &Request{Body: []byte("not json")}
	var v map[string]any
	require.Error(t, req.JSON(&v))
}
