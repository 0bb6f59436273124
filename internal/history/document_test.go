package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hreq/internal/errdef"
	"hreq/internal/model"
)

func TestMarshalIncludesEveryMethodInOrder(t *testing.T) {
	s := NewStore()
	s.Append(model.RequestRecord{
		Method:      model.MethodGet,
		URL:         "http://example.com/?a=1&b=<2>",
		ContentType: model.ContentPlain,
		Body:        "",
		Headers:     `{"Accept": "text/html"}`,
	})

	data, err := s.Marshal()
	require.NoError(t, err)

	want := `{
    "GET": [
        {
            "selected_http_verb": "GET",
            "selected_url": "http://example.com/?a=1&b=<2>",
            "content_type_text": "PLAIN",
            "body_text": "",
            "headers_text": "{\"Accept\": \"text/html\"}"
        }
    ],
    "POST": [],
    "PUT": [],
    "PATCH": [],
    "DELETE": [],
    "OPTIONS": [],
    "HEAD": []
}`
	assert.Equal(t, want, string(data))
	assert.NotContains(t, string(data), `"ID"`)
}

func TestRoundTrip(t *testing.T) {
	original := model.RequestRecord{
		Method:      model.MethodGet,
		URL:         "http://localhost:5000/",
		ContentType: model.ContentJSON,
		Body:        "{\n  \"x\": 1\n}",
		Headers:     `{"Authorization": "Bearer 123"}`,
	}
	s := NewStore()
	s.Append(original)

	data, err := s.Marshal()
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)

	entries := loaded.Entries(model.MethodGet)
	require.Len(t, entries, 1)
	assert.True(t, original.SameFields(entries[0].Record))
	assert.NotEmpty(t, entries[0].Record.ID)
	assert.Equal(t, 0, loaded.Count(model.MethodPost))
}

func TestUnmarshalAcceptsPartialDocuments(t *testing.T) {
	loaded, err := Unmarshal([]byte(`{"POST": [{
		"selected_http_verb": "POST", "selected_url": "http://x", "content_type_text": "XML",
		"body_text": "<a/>", "headers_text": ""}], "GET": null}`))
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())

	entry, ok := loaded.Get(model.MethodPost, 1)
	require.True(t, ok)
	assert.Equal(t, "POST #1", entry.Label)
	assert.Equal(t, model.ContentXML, entry.Record.ContentType)
}

func TestUnmarshalErrors(t *testing.T) {
	full := `"selected_url": "u", "content_type_text": "JSON", "body_text": "", "headers_text": ""`
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed", `{"GET": [`, "parse history"},
		{"not an object", `[]`, "parse history"},
		{"null document", `null`, "not a JSON object"},
		{"value not array", `{"GET": {}}`, "parse history"},
		{"unknown method", `{"TRACE": []}`, `unknown method "TRACE"`},
		{"missing field", `{"GET": [{"selected_http_verb": "GET", "selected_url": "u"}]}`, `missing field "content_type_text"`},
		{"non-string field", `{"GET": [{"selected_http_verb": "GET", "selected_url": 3}]}`, "parse history"},
		{"verb mismatch", `{"GET": [{"selected_http_verb": "POST", ` + full + `}]}`, `verb "POST" filed under GET`},
		{"bad content type", `{"GET": [{"selected_http_verb": "GET", "selected_url": "u", "content_type_text": "CSV", "body_text": "", "headers_text": ""}]}`, `unknown content type "CSV"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errdef.Is(err, errdef.CodeHistory))
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
