package compose

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"hreq/internal/errdef"
	"hreq/internal/model"
)

// Request is the ready-to-send form of a RequestRecord.
type Request struct {
	Method  model.Method
	URL     string
	Headers map[string]string
	// Body is nil when no payload is attached.
	Body *string
}

// HasBody reports whether a payload is attached.
func (r *Request) HasBody() bool {
	return r != nil && r.Body != nil
}

// Compose turns the entered fields into the effective URL, headers and body.
func Compose(rec model.RequestRecord) (*Request, error) {
	if !rec.Method.Valid() {
		return nil, errdef.New(errdef.CodeParse, "unknown method %q", string(rec.Method))
	}
	mime := rec.ContentType.MIME()
	if mime == "" {
		return nil, errdef.New(errdef.CodeParse, "unknown content type %q", string(rec.ContentType))
	}

	headers := map[string]string{"Content-Type": mime}
	custom, err := ParseHeaders(rec.Headers)
	if err != nil {
		return nil, err
	}
	mergeHeaders(headers, custom)

	req := &Request{
		Method:  rec.Method,
		URL:     rec.URL,
		Headers: headers,
	}
	if rec.Method.CarriesBody() && strings.TrimSpace(rec.Body) != "" {
		body := rec.Body
		req.Body = &body
	}
	return req, nil
}

// ParseHeaders parses header text as a JSON object of strings. Blank text
// yields an empty map; a JSON null is rejected.
func ParseHeaders(text string) (map[string]string, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]string{}, nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(text), &headers); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "failed to parse given headers")
	}
	if headers == nil {
		return nil, errdef.New(errdef.CodeParse, "failed to parse given headers: not a JSON object")
	}
	return headers, nil
}

// mergeHeaders copies src over dst. A src key replaces any dst key that
// differs only in letter case.
func mergeHeaders(dst, src map[string]string) {
	for key, value := range src {
		for existing := range dst {
			if existing != key && strings.EqualFold(existing, key) {
				delete(dst, existing)
			}
		}
		dst[key] = value
	}
}

// Lint reports problems that do not block sending.
func Lint(rec model.RequestRecord) []string {
	body := strings.TrimSpace(rec.Body)
	if body == "" {
		return nil
	}

	var warnings []string
	if !rec.Method.CarriesBody() {
		warnings = append(warnings, fmt.Sprintf("body is ignored for %s requests", rec.Method))
		return warnings
	}

	switch rec.ContentType {
	case model.ContentJSON:
		if !gjson.Valid(body) {
			warnings = append(warnings, "body is not valid JSON")
		}
	case model.ContentXML:
		if err := checkXML(body); err != nil {
			warnings = append(warnings, fmt.Sprintf("body is not well-formed XML: %v", err))
		}
	}
	return warnings
}

func checkXML(body string) error {
	dec := xml.NewDecoder(strings.NewReader(body))
	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return errors.New("no root element")
	}
	return nil
}
