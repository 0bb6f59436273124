package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"hreq/internal/errdef"
	"hreq/internal/model"
)

// Indent is the indentation used for history files.
const Indent = "    "

// fileRecord mirrors the persisted entry shape. Pointers detect missing fields.
type fileRecord struct {
	Method      *string `json:"selected_http_verb"`
	URL         *string `json:"selected_url"`
	ContentType *string `json:"content_type_text"`
	Body        *string `json:"body_text"`
	Headers     *string `json:"headers_text"`
}

// Marshal encodes the store as a JSON object keyed by every known method,
// in display order, with empty arrays for methods without entries.
func (s *Store) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, method := range model.Methods {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(&buf, string(method)); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encode(&buf, s.Records(method)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", Indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// encode writes v without escaping HTML characters and without the trailing newline.
func encode(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Unmarshal decodes a history document into a new store. The whole document
// is validated before anything is returned.
func Unmarshal(data []byte) (*Store, error) {
	var doc map[string][]fileRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errdef.Wrap(errdef.CodeHistory, err, "parse history")
	}
	if doc == nil {
		return nil, errdef.New(errdef.CodeHistory, "history file is not a JSON object")
	}

	for key := range doc {
		if !model.Method(key).Valid() {
			return nil, errdef.New(errdef.CodeHistory, "unknown method %q", key)
		}
	}

	store := NewStore()
	for _, method := range model.Methods {
		for i, fr := range doc[string(method)] {
			rec, err := fr.record(method)
			if err != nil {
				return nil, errdef.Wrap(errdef.CodeHistory, err, "%s[%d]", method, i)
			}
			store.Append(rec)
		}
	}
	return store, nil
}

func (fr fileRecord) record(method model.Method) (model.RequestRecord, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"selected_http_verb", fr.Method},
		{"selected_url", fr.URL},
		{"content_type_text", fr.ContentType},
		{"body_text", fr.Body},
		{"headers_text", fr.Headers},
	}
	for _, f := range fields {
		if f.value == nil {
			return model.RequestRecord{}, fmt.Errorf("missing field %q", f.name)
		}
	}

	if model.Method(*fr.Method) != method {
		return model.RequestRecord{}, fmt.Errorf("verb %q filed under %s", *fr.Method, method)
	}
	ct := model.ContentType(*fr.ContentType)
	if !ct.Valid() {
		return model.RequestRecord{}, fmt.Errorf("unknown content type %q", *fr.ContentType)
	}

	return model.RequestRecord{
		Method:      method,
		URL:         *fr.URL,
		ContentType: ct,
		Body:        *fr.Body,
		Headers:     *fr.Headers,
	}, nil
}
