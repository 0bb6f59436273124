package format

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/quick"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"hreq/internal/compose"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/render"
)

// urlWidth is the display width long URLs are cut to in listings.
const urlWidth = 60

// sensitiveHeaders are masked when a stored record is printed
var sensitiveHeaders = map[string]bool{
	// Standard authentication headers
	"authorization":       true,
	"proxy-authorization": true,

	// Session and token headers
	"cookie":       true,
	"x-api-key":    true,
	"api-key":      true,
	"x-auth-token": true,
	"x-csrf-token": true,

	// Cloud credentials
	"x-amz-security-token":     true,
	"x-goog-iap-jwt-assertion": true,

	// Other common auth headers
	"x-access-token":  true,
	"x-refresh-token": true,
	"x-session-token": true,
	"x-secret-key":    true,
}

// sanitizeOutput removes or escapes potentially dangerous control characters
// that could manipulate terminal display or execute commands
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			// Allow common whitespace characters
			result.WriteRune(r)
		case r == '\x1b':
			// Escape ANSI escape sequences - replace ESC with visible representation
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			// Replace other control characters (0x00-0x1F except allowed whitespace)
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7F:
			// DEL character
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// Sanitize is sanitizeOutput for callers outside the package.
func Sanitize(s string) string {
	return sanitizeOutput(s)
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	warnColor      = color.New(color.FgYellow)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

// SetColor turns colored output on or off for every printer.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

func getStatusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}

// PrintOutcome prints the rendered body followed by the status summary.
func PrintOutcome(w io.Writer, outcome *render.Outcome, highlight bool) {
	if outcome.Notice != "" {
		PrintWarning(w, outcome.Notice)
	}
	printBody(w, outcome, highlight)
	PrintStatus(w, outcome.Summary)
}

func printBody(w io.Writer, outcome *render.Outcome, highlight bool) {
	if outcome.Text == "" {
		dimColor.Fprintln(w, "(empty body)")
		return
	}

	text := sanitizeOutput(outcome.Text)
	if highlight && !color.NoColor {
		if out, ok := Highlight(text, outcome.Kind); ok {
			fmt.Fprintln(w, out)
			return
		}
	}
	fmt.Fprintln(w, text)
}

// Highlight colors JSON and HTML text for a true-color terminal. Other kinds
// are left alone and report false.
func Highlight(text string, kind render.Kind) (string, bool) {
	lexer := ""
	switch kind {
	case render.KindJSON:
		lexer = "json"
	case render.KindHTML:
		lexer = "html"
	default:
		return "", false
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, text, lexer, "terminal16m", "monokai"); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

// PrintStatus prints the one-line response summary.
func PrintStatus(w io.Writer, summary render.Summary) {
	getStatusColor(summary.StatusCode).Fprintln(w, sanitizeOutput(summary.String()))
}

// PrintEntry prints the label a record was stored under.
func PrintEntry(w io.Writer, entry history.Entry) {
	dimColor.Fprint(w, "Recorded as ")
	methodColor.Fprintln(w, entry.Label)
}

// PrintHistoryTree prints every method with its numbered entries.
func PrintHistoryTree(w io.Writer, store *history.Store) {
	if store.Len() == 0 {
		dimColor.Fprintln(w, "No requests in history")
		return
	}

	for _, method := range model.Methods {
		entries := store.Entries(method)
		methodColor.Fprintf(w, "%s ", method)
		dimColor.Fprintf(w, "(%d)\n", len(entries))

		for _, entry := range entries {
			dimColor.Fprintf(w, "  %-12s ", entry.Label)
			urlColor.Fprintln(w, sanitizeOutput(TruncateURL(entry.Record.URL, urlWidth)))
		}
	}
}

// TruncateURL cuts u to width display cells.
func TruncateURL(u string, width int) string {
	return runewidth.Truncate(u, width, "...")
}

// PrintRecordDetail prints every field of a stored record. Credentials in
// the header text are masked.
func PrintRecordDetail(w io.Writer, entry history.Entry) {
	rec := entry.Record

	fmt.Fprintln(w, "Request:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	methodColor.Fprintf(w, "%s ", rec.Method)
	urlColor.Fprintln(w, sanitizeOutput(rec.URL))
	dimColor.Fprintf(w, "Entry: %s\n", entry.Label)
	dimColor.Fprintf(w, "ID: %s\n", rec.ID)
	dimColor.Fprintf(w, "Content-Type: %s (%s)\n\n", rec.ContentType, rec.ContentType.MIME())

	if strings.TrimSpace(rec.Headers) != "" {
		printHeaderText(w, rec.Headers)
	}

	if strings.TrimSpace(rec.Body) != "" {
		fmt.Fprintln(w, "Body:")
		fmt.Fprintln(w, sanitizeOutput(rec.Body))
		fmt.Fprintln(w)
	}
}

func printHeaderText(w io.Writer, text string) {
	headers, err := compose.ParseHeaders(text)
	if err != nil {
		fmt.Fprintln(w, "Headers (unparsed):")
		fmt.Fprintln(w, sanitizeOutput(text))
		fmt.Fprintln(w)
		return
	}
	printHeaders(w, headers)
}

func printHeaders(w io.Writer, headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(w, "Headers:")

	// Sort headers for consistent output
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := headers[key]
		if sensitiveHeaders[strings.ToLower(key)] {
			value = "[REDACTED]"
		}
		headerKeyColor.Fprintf(w, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(w, sanitizeOutput(value))
	}
	fmt.Fprintln(w)
}

// PrintWarning prints a non-fatal notice
func PrintWarning(w io.Writer, msg string) {
	warnColor.Fprintf(w, "! %s\n", sanitizeOutput(msg))
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, msg string) {
	successColor.Fprintf(w, "✓ %s\n", sanitizeOutput(msg))
}

// PrintError prints an error message
func PrintError(w io.Writer, msg string) {
	clientErrColor.Fprintf(w, "✗ %s\n", sanitizeOutput(msg))
}
