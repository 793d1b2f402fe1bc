package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelopeField(t *testing.T) {
	env := ParseEnvelope([]byte(`{"protocol":"one-to-one","endpoint":"b","room":null,"from":{"name":"a"}}`))

	p, ok := env.Field(FieldProtocol)
	assert.True(t, ok)
	assert.Equal(t, "one-to-one", p)

	_, ok = env.Field(FieldRoom)
	assert.False(t, ok, "null is not a string")
	_, ok = env.Field(FieldFrom)
	assert.False(t, ok, "object is not a string")
	_, ok = env.Field(FieldAction)
	assert.False(t, ok)
}

func TestEnvelopeMalformed(t *testing.T) {
	for _, raw := range []string{"", "{", "42", `"one-to-all"`, "null"} {
		env := ParseEnvelope([]byte(raw))
		_, ok := env.Field(FieldProtocol)
		assert.False(t, ok, raw)
	}
}

func TestEnvelopeEmptyStringIsPresent(t *testing.T) {
	env := ParseEnvelope([]byte(`{"endpoint":""}`))
	v, ok := env.Field(FieldEndpoint)
	assert.True(t, ok)
	assert.Empty(t, v)
}
