package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	httpclient "hreq/internal/http"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/session"
)

type focus int

const (
	focusMethod focus = iota
	focusURL
	focusContentType
	focusHeaders
	focusBody
	focusHistory
	focusResponse
	focusCount
)

type promptKind int

const (
	promptNone promptKind = iota
	promptSave
	promptLoadReplace
	promptLoadMerge
)

const (
	urlPlaceholder      = "http://www.example.com:8080/endpoint/123"
	responsePlaceholder = "Response will show up here..."

	headersPlaceholder = `{
    "Content-Type": "application/json",
    "Authorization": "Bearer 123"
}`
	bodyPlaceholder = `{
    "example1": "value1",
    "example2": 123,
    "example3": {
        "example4": true
    }
}`
)

// Options configures a new composer.
type Options struct {
	Client *httpclient.Client
	Logger zerolog.Logger

	// Initial pre-populates the fields. Fields left empty show placeholders.
	Initial   model.RequestRecord
	Highlight bool
}

// Model is the interactive request composer.
type Model struct {
	session *session.Session
	client  *httpclient.Client
	log     zerolog.Logger

	methodIdx int
	typeIdx   int
	url       textinput.Model
	headers   textarea.Model
	body      textarea.Model

	response     viewport.Model
	responseText string
	highlight    bool

	cursor int
	focus  focus

	prompt      promptKind
	promptInput textinput.Model

	status      string
	statusLevel statusLevel

	loading bool
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width  int
	height int
}

// New builds the composer with an empty, in-memory history.
func New(opts Options) Model {
	client := opts.Client
	if client == nil {
		client = httpclient.NewClient(opts.Logger)
	}

	url := textinput.New()
	url.Placeholder = urlPlaceholder
	url.Prompt = ""
	url.CharLimit = 0

	headers := textarea.New()
	headers.Placeholder = headersPlaceholder
	headers.ShowLineNumbers = false
	headers.CharLimit = 0

	body := textarea.New()
	body.Placeholder = bodyPlaceholder
	body.ShowLineNumbers = false
	body.CharLimit = 0

	prompt := textinput.New()
	prompt.Placeholder = "history.json"
	prompt.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		session:     session.New(client, opts.Logger),
		client:      client,
		log:         opts.Logger,
		url:         url,
		headers:     headers,
		body:        body,
		response:    viewport.New(0, 0),
		highlight:   opts.Highlight,
		focus:       focusURL,
		promptInput: prompt,
		spinner:     sp,
		help:        help.New(),
		keys:        defaultKeys(),
		status:      "Ready",
		width:       100,
		height:      32,
	}
	m.response.SetContent(placeholderStyle.Render(responsePlaceholder))
	m.fill(opts.Initial)
	m.applyFocus()
	m.layout()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Session exposes the composer's application session.
func (m Model) Session() *session.Session {
	return m.session
}

func (m Model) method() model.Method {
	return model.Methods[m.methodIdx]
}

func (m Model) contentType() model.ContentType {
	return model.ContentTypes[m.typeIdx]
}

// record is the request exactly as currently entered.
func (m Model) record() model.RequestRecord {
	return model.RequestRecord{
		Method:      m.method(),
		URL:         m.url.Value(),
		ContentType: m.contentType(),
		Body:        m.body.Value(),
		Headers:     m.headers.Value(),
	}
}

// fill copies rec into the fields. Unknown method or content type keep the
// current selection.
func (m *Model) fill(rec model.RequestRecord) {
	for i, method := range model.Methods {
		if method == rec.Method {
			m.methodIdx = i
		}
	}
	for i, ct := range model.ContentTypes {
		if ct == rec.ContentType {
			m.typeIdx = i
		}
	}
	m.url.SetValue(rec.URL)
	m.headers.SetValue(rec.Headers)
	m.body.SetValue(rec.Body)
}

// rows lists every history entry in tree order.
func (m Model) rows() []history.Entry {
	store := m.session.Store()
	var out []history.Entry
	for _, method := range model.Methods {
		out = append(out, store.Entries(method)...)
	}
	return out
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) cursorTo(entry history.Entry) {
	for i, row := range m.rows() {
		if row.Record.ID == entry.Record.ID {
			m.cursor = i
			return
		}
	}
}

func (m *Model) applyFocus() {
	m.url.Blur()
	m.headers.Blur()
	m.body.Blur()

	switch m.focus {
	case focusURL:
		m.url.Focus()
	case focusHeaders:
		m.headers.Focus()
	case focusBody:
		m.body.Focus()
	}
}

func (m *Model) moveFocus(step int) {
	m.focus = (m.focus + focus(step) + focusCount) % focusCount
	m.applyFocus()
}

func (m *Model) setStatus(text string, level statusLevel) {
	m.status = text
	m.statusLevel = level
}

func (m *Model) layout() {
	width := max(m.width, 60)
	height := max(m.height, 20)

	m.url.Width = max(width-topFixedWidth, 10)

	editorWidth := max((width-historyWidth-2)/2-2, 10)
	m.headers.SetWidth(editorWidth)
	m.body.SetWidth(editorWidth)

	avail := height - topHeight - footerHeight
	middle := max(avail*2/5, 6)
	m.headers.SetHeight(middle - 3)
	m.body.SetHeight(middle - 3)

	m.response.Width = width - 2
	m.response.Height = max(avail-middle-2, 3)
}
