package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" patch ")
	assert.True(t, ok)
	assert.Equal(t, MethodPatch, m)

	_, ok = ParseMethod("TRACE")
	assert.False(t, ok)
}

func TestCarriesBody(t *testing.T) {
	for _, m := range Methods {
		want := m == MethodPost || m == MethodPut || m == MethodPatch
		assert.Equal(t, want, m.CarriesBody(), m)
	}
}

func TestContentTypeMIME(t *testing.T) {
	assert.Equal(t, "text/plain", ContentPlain.MIME())
	assert.Equal(t, "application/json", ContentJSON.MIME())
	assert.Equal(t, "application/xml", ContentXML.MIME())
	assert.Equal(t, "", ContentType("YAML").MIME())

	c, ok := ParseContentType("json")
	assert.True(t, ok)
	assert.Equal(t, ContentJSON, c)
}

func TestSameFieldsIgnoresID(t *testing.T) {
	a := RequestRecord{ID: "1", Method: MethodGet, URL: "http://x", ContentType: ContentJSON}
	b := a
	b.ID = "2"
	assert.True(t, a.SameFields(b))

	b.Body = "{}"
	assert.False(t, a.SameFields(b))
}

func TestResponseHelpersOnNil(t *testing.T) {
	var r *Response
	assert.Equal(t, "", r.ContentType())
	assert.Equal(t, 0, r.Size())
}
