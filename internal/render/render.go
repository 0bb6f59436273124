package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
	"time"

	"hreq/internal/errdef"
	"hreq/internal/model"
)

const (
	HTMLType = "text/html"
	JSONType = "application/json"

	// TimestampFormat is ISO-8601 in UTC.
	TimestampFormat = "2006-01-02T15:04:05Z"
)

// Kind tells the view how to display the rendered text.
type Kind int

const (
	KindHTML Kind = iota
	KindJSON
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindJSON:
		return "json"
	default:
		return "raw"
	}
}

// Summary is the status line shown after a successful response.
type Summary struct {
	Timestamp   time.Time
	ContentType string
	StatusCode  int
	Elapsed     time.Duration
	Size        int
}

func (s Summary) String() string {
	return fmt.Sprintf("Response: Timestamp=%s, Content-Type=%s, Code=%d, Elapsed=%s, Size=%d B.",
		s.Timestamp.UTC().Format(TimestampFormat), s.ContentType, s.StatusCode, s.Elapsed, s.Size)
}

// Outcome is a classified, display-ready response.
type Outcome struct {
	Kind    Kind
	Text    string
	Notice  string
	Summary Summary
}

// Render classifies the response by its Content-Type prefix and formats the body.
func Render(resp *model.Response, now time.Time) (*Outcome, error) {
	ct := resp.ContentType()
	out := &Outcome{
		Summary: Summary{
			Timestamp:   now.UTC(),
			ContentType: HTMLType,
			StatusCode:  resp.StatusCode,
			Elapsed:     resp.Duration,
			Size:        resp.Size(),
		},
	}

	switch {
	case strings.HasPrefix(ct, HTMLType):
		out.Kind = KindHTML
		out.Text = string(resp.Body)
	case strings.HasPrefix(ct, JSONType):
		text, err := PrettyJSON(resp.Body)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeParse, err, "invalid JSON response body")
		}
		out.Kind = KindJSON
		out.Text = text
		out.Summary.ContentType = JSONType
	default:
		out.Kind = KindRaw
		out.Text = string(resp.Body)
		out.Summary.ContentType = mediaType(ct)
		out.Notice = fmt.Sprintf("unsupported content type %q, showing raw body as text", out.Summary.ContentType)
	}

	if resp.Truncated {
		out.Notice = strings.TrimPrefix(out.Notice+"; response body truncated", "; ")
	}
	return out, nil
}

// PrettyJSON re-indents a JSON document with four spaces. An empty body
// yields empty text.
func PrettyJSON(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "    "); err != nil {
		return "", err
	}
	return out.String(), nil
}

func mediaType(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "unknown"
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(ct)
	}
	return mt
}
