package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hreq/internal/compose"
	"hreq/internal/errdef"
	httpclient "hreq/internal/http"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/render"
	"hreq/internal/storage"
)

// Doer performs a composed request.
type Doer interface {
	Do(ctx context.Context, req *compose.Request) (*model.Response, error)
}

// RequestError is any failure between dispatching a request and rendering
// its response.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "Request failed: " + errdef.Detail(e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Result is what a successful send produced.
type Result struct {
	Outcome  *render.Outcome
	Entry    history.Entry
	Warnings []string
}

// Session owns one history store and runs the user's commands against it.
type Session struct {
	store  *history.Store
	client Doer
	log    zerolog.Logger
	now    func() time.Time
}

// New creates a session with an empty history.
func New(client Doer, log zerolog.Logger) *Session {
	return NewWithStore(history.NewStore(), client, log)
}

// NewWithStore creates a session over an existing store.
func NewWithStore(store *history.Store, client Doer, log zerolog.Logger) *Session {
	if store == nil {
		store = history.NewStore()
	}
	return &Session{
		store:  store,
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Store returns the session's history.
func (s *Session) Store() *history.Store {
	return s.store
}

// Client returns the current request client.
func (s *Session) Client() Doer {
	return s.client
}

// SetClient swaps the client used by later sends.
func (s *Session) SetClient(client Doer) {
	s.client = client
}

// Send composes, dispatches and records rec. Compose failures are returned
// as is; everything after composition fails with a *RequestError.
func (s *Session) Send(ctx context.Context, rec model.RequestRecord) (*Result, error) {
	req, warnings, err := s.Prepare(rec)
	if err != nil {
		return nil, err
	}

	resp, err := Dispatch(ctx, s.client, req)
	if err != nil {
		s.log.Warn().Err(err).Str("method", string(rec.Method)).Str("url", rec.URL).Msg("request failed")
		return nil, err
	}

	result, err := s.Complete(rec, resp)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings
	return result, nil
}

// Prepare composes rec and collects lint warnings.
func (s *Session) Prepare(rec model.RequestRecord) (*compose.Request, []string, error) {
	req, err := compose.Compose(rec)
	if err != nil {
		s.log.Debug().Err(err).Msg("compose failed")
		return nil, nil, err
	}

	warnings := compose.Lint(rec)
	for _, w := range warnings {
		s.log.Warn().Str("method", string(rec.Method)).Msg(w)
	}
	return req, warnings, nil
}

// Dispatch performs req and rejects non-2xx responses. It touches no session
// state and may run off the owner's goroutine.
func Dispatch(ctx context.Context, client Doer, req *compose.Request) (*model.Response, error) {
	if client == nil {
		return nil, &RequestError{Err: errdef.New(errdef.CodeHTTP, "no client configured")}
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	if err := httpclient.RaiseForStatus(resp); err != nil {
		return nil, &RequestError{Err: err}
	}
	return resp, nil
}

// Complete renders a successful response and appends rec, exactly as entered,
// to the history.
func (s *Session) Complete(rec model.RequestRecord, resp *model.Response) (*Result, error) {
	outcome, err := render.Render(resp, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("url", resp.URL).Msg("render failed")
		return nil, &RequestError{Err: err}
	}

	entry := s.store.Append(rec)
	s.log.Info().
		Str("entry", entry.Label).
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Duration).
		Msg("request recorded")

	return &Result{Outcome: outcome, Entry: entry}, nil
}

// Select returns the n-th (1-based) entry under method.
func (s *Session) Select(method model.Method, n int) (history.Entry, error) {
	entry, ok := s.store.Get(method, n)
	if !ok {
		return history.Entry{}, errdef.New(errdef.CodeHistory, "no entry %s", history.Label(method, n))
	}
	return entry, nil
}

// Delete removes the n-th (1-based) entry under method.
func (s *Session) Delete(method model.Method, n int) (model.RequestRecord, error) {
	rec, ok := s.store.Delete(method, n)
	if !ok {
		return model.RequestRecord{}, errdef.New(errdef.CodeHistory, "no entry %s", history.Label(method, n))
	}
	s.log.Info().Str("entry", history.Label(method, n)).Msg("history entry deleted")
	return rec, nil
}

// Save writes the history to path. An empty path is a cancelled selection
// and reports false.
func (s *Session) Save(path string) (bool, error) {
	saved, err := storage.SaveHistoryFile(path, s.store)
	if err != nil {
		return false, err
	}
	if saved {
		s.log.Info().Str("path", path).Int("entries", s.store.Len()).Msg("history saved")
	}
	return saved, nil
}

// Load reads path and replaces or merges the history. The store is only
// touched when the whole file parsed.
func (s *Session) Load(path string, mode history.LoadMode) (bool, error) {
	loaded, err := storage.LoadHistoryFile(path)
	if err != nil {
		return false, err
	}
	if loaded == nil {
		return false, nil
	}

	s.store.Load(loaded, mode)
	s.log.Info().
		Str("path", path).
		Stringer("mode", mode).
		Int("entries", s.store.Len()).
		Msg("history loaded")
	return true, nil
}
