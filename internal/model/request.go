package model

import (
	"strings"
	"time"
)

// Method is an HTTP verb the composer can send.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// Methods lists every known verb in display order.
var Methods = []Method{
	MethodGet, MethodPost, MethodPut, MethodPatch,
	MethodDelete, MethodOptions, MethodHead,
}

// ParseMethod accepts a verb in any letter case.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// CarriesBody reports whether a request body is attached for this verb.
func (m Method) CarriesBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

func (m Method) String() string {
	return string(m)
}

// ContentType is the label picked for the request payload.
type ContentType string

const (
	ContentPlain ContentType = "PLAIN"
	ContentJSON  ContentType = "JSON"
	ContentXML   ContentType = "XML"
)

// ContentTypes lists every known label in display order.
var ContentTypes = []ContentType{ContentPlain, ContentJSON, ContentXML}

var mimeTypes = map[ContentType]string{
	ContentPlain: "text/plain",
	ContentJSON:  "application/json",
	ContentXML:   "application/xml",
}

// ParseContentType accepts a label in any letter case.
func ParseContentType(s string) (ContentType, bool) {
	c := ContentType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := mimeTypes[c]
	return c, ok
}

// MIME returns the media type for the label, or "" when unknown.
func (c ContentType) MIME() string {
	return mimeTypes[c]
}

func (c ContentType) Valid() bool {
	_, ok := mimeTypes[c]
	return ok
}

func (c ContentType) String() string {
	return string(c)
}

// RequestRecord holds the fields exactly as the user entered them.
type RequestRecord struct {
	ID          string      `json:"-"`
	Method      Method      `json:"selected_http_verb"`
	URL         string      `json:"selected_url"`
	ContentType ContentType `json:"content_type_text"`
	Body        string      `json:"body_text"`
	Headers     string      `json:"headers_text"`
}

// SameFields compares the persisted fields and ignores the ID.
func (r RequestRecord) SameFields(other RequestRecord) bool {
	return r.Method == other.Method &&
		r.URL == other.URL &&
		r.ContentType == other.ContentType &&
		r.Body == other.Body &&
		r.Headers == other.Headers
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
	URL        string
	Truncated  bool
}

// ContentType returns the raw Content-Type header value.
func (r *Response) ContentType() string {
	if r == nil {
		return ""
	}
	return r.Headers["Content-Type"]
}

// Size returns the body size in bytes.
func (r *Response) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Body)
}
