package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/auditr-io/testmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hreq/internal/errdef"
	httpclient "hreq/internal/http"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/render"
)

func mockClient(status int, contentType, body string) *httpclient.Client {
	m := &testmock.MockTransport{
		RoundTripFn: func(m *testmock.MockTransport, req *http.Request) (*http.Response, error) {
			h := http.Header{}
			if contentType != "" {
				h.Set("Content-Type", contentType)
			}
			return &http.Response{
				StatusCode: status,
				Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
				Header:     h,
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}, nil
		},
	}
	return httpclient.NewClientWithSettings(httpclient.DefaultSettings, m, zerolog.Nop())
}

func fixedNow(s *Session) {
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
}

func TestSendJSONSuccessRecordsEntry(t *testing.T) {
	var gotCT, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"a":1}`))
	}))
	defer srv.Close()

	s := New(httpclient.NewClient(zerolog.Nop()), zerolog.Nop())
	fixedNow(s)

	rec := model.RequestRecord{
		Method:      model.MethodPost,
		URL:         srv.URL,
		ContentType: model.ContentJSON,
		Body:        `{"name": "x"}`,
		Headers:     `{"X-Trace": "1"}`,
	}
	result, err := s.Send(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, `{"name": "x"}`, gotBody)

	assert.Equal(t, render.KindJSON, result.Outcome.Kind)
	assert.Equal(t, "{\n    \"a\": 1\n}", result.Outcome.Text)
	assert.Equal(t, "application/json", result.Outcome.Summary.ContentType)
	assert.Equal(t, 200, result.Outcome.Summary.StatusCode)
	assert.Equal(t, 7, result.Outcome.Summary.Size)
	assert.Equal(t, "2024-05-01T12:30:00Z", result.Outcome.Summary.Timestamp.Format(render.TimestampFormat))
	assert.Empty(t, result.Warnings)

	assert.Equal(t, "POST #1", result.Entry.Label)
	stored, err := s.Select(model.MethodPost, 1)
	require.NoError(t, err)
	assert.True(t, rec.SameFields(stored.Record))
}

func TestSendNotFoundIsRequestFailure(t *testing.T) {
	s := New(mockClient(http.StatusNotFound, "text/html", "<h1>nope</h1>"), zerolog.Nop())

	_, err := s.Send(context.Background(), model.RequestRecord{
		Method:      model.MethodGet,
		URL:         "http://example.com",
		ContentType: model.ContentPlain,
	})
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.True(t, strings.HasPrefix(err.Error(), "Request failed:"))
	assert.Equal(t, "Request failed: 404 Client Error: Not Found for url: http://example.com", err.Error())
	assert.Equal(t, 0, s.Store().Len())
}

func TestSendHeaderParseErrorSendsNothing(t *testing.T) {
	called := false
	m := &testmock.MockTransport{
		RoundTripFn: func(m *testmock.MockTransport, req *http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unexpected")
		},
	}
	s := New(httpclient.NewClientWithSettings(httpclient.DefaultSettings, m, zerolog.Nop()), zerolog.Nop())

	_, err := s.Send(context.Background(), model.RequestRecord{
		Method:      model.MethodGet,
		URL:         "http://example.com",
		ContentType: model.ContentJSON,
		Headers:     "not json",
	})
	require.Error(t, err)
	assert.True(t, errdef.Is(err, errdef.CodeParse))
	assert.Contains(t, err.Error(), "failed to parse given headers")
	assert.Contains(t, err.Error(), "invalid character")

	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr))
	assert.False(t, called)
	assert.Equal(t, 0, s.Store().Len())
}

func TestSendTransportFailure(t *testing.T) {
	m := &testmock.MockTransport{
		RoundTripFn: func(m *testmock.MockTransport, req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := New(httpclient.NewClientWithSettings(httpclient.DefaultSettings, m, zerolog.Nop()), zerolog.Nop())

	_, err := s.Send(context.Background(), model.RequestRecord{
		Method: model.MethodGet, URL: "http://example.com", ContentType: model.ContentPlain,
	})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Request failed: "))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, s.Store().Len())
}

func TestSendMalformedJSONResponse(t *testing.T) {
	s := New(mockClient(http.StatusOK, "application/json", "{broken"), zerolog.Nop())

	_, err := s.Send(context.Background(), model.RequestRecord{
		Method: model.MethodGet, URL: "http://example.com", ContentType: model.ContentJSON,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Request failed: invalid JSON response body")
	assert.Equal(t, 0, s.Store().Len())
}

func TestSendRawFallbackAndWarnings(t *testing.T) {
	s := New(mockClient(http.StatusOK, "text/csv", "a,b\n1,2"), zerolog.Nop())

	result, err := s.Send(context.Background(), model.RequestRecord{
		Method: model.MethodGet, URL: "http://example.com", ContentType: model.ContentPlain, Body: "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, render.KindRaw, result.Outcome.Kind)
	assert.Equal(t, "a,b\n1,2", result.Outcome.Text)
	assert.Equal(t, "text/csv", result.Outcome.Summary.ContentType)
	assert.Contains(t, result.Outcome.Notice, "unsupported content type")
	assert.Equal(t, []string{"body is ignored for GET requests"}, result.Warnings)
	assert.Equal(t, "GET #1", result.Entry.Label)
}

func TestDeleteRenumbers(t *testing.T) {
	s := New(mockClient(http.StatusOK, "text/html", "<p>ok</p>"), zerolog.Nop())
	for _, u := range []string{"http://a.test", "http://b.test", "http://c.test"} {
		_, err := s.Send(context.Background(), model.RequestRecord{Method: model.MethodGet, URL: u, ContentType: model.ContentPlain})
		require.NoError(t, err)
	}

	removed, err := s.Delete(model.MethodGet, 2)
	require.NoError(t, err)
	assert.Equal(t, "http://b.test", removed.URL)

	entries := s.Store().Entries(model.MethodGet)
	require.Len(t, entries, 2)
	assert.Equal(t, "GET #1", entries[0].Label)
	assert.Equal(t, "http://a.test", entries[0].Record.URL)
	assert.Equal(t, "GET #2", entries[1].Label)
	assert.Equal(t, "http://c.test", entries[1].Record.URL)

	_, err = s.Delete(model.MethodGet, 3)
	assert.True(t, errdef.Is(err, errdef.CodeHistory))
	_, err = s.Select(model.MethodPost, 1)
	assert.True(t, errdef.Is(err, errdef.CodeHistory))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	rec := model.RequestRecord{
		Method: model.MethodGet, URL: "http://a.test", ContentType: model.ContentJSON,
		Body: "", Headers: `{"Accept": "application/json"}`,
	}

	src := New(nil, zerolog.Nop())
	src.Store().Append(rec)
	saved, err := src.Save(path)
	require.NoError(t, err)
	assert.True(t, saved)

	dst := New(nil, zerolog.Nop())
	dst.Store().Append(model.RequestRecord{Method: model.MethodGet, URL: "http://existing.test", ContentType: model.ContentPlain})

	loaded, err := dst.Load(path, history.LoadMerge)
	require.NoError(t, err)
	assert.True(t, loaded)
	require.Equal(t, 2, dst.Store().Count(model.MethodGet))
	second, _ := dst.Select(model.MethodGet, 2)
	assert.True(t, rec.SameFields(second.Record))

	loaded, err = dst.Load(path, history.LoadReplace)
	require.NoError(t, err)
	assert.True(t, loaded)
	require.Equal(t, 1, dst.Store().Count(model.MethodGet))
	first, _ := dst.Select(model.MethodGet, 1)
	assert.True(t, rec.SameFields(first.Record))
	assert.Equal(t, 0, dst.Store().Count(model.MethodPost))
}

func TestCancelledSaveAndLoadAreNoOps(t *testing.T) {
	s := New(nil, zerolog.Nop())
	s.Store().Append(model.RequestRecord{Method: model.MethodGet, URL: "http://a.test", ContentType: model.ContentPlain})

	saved, err := s.Save("")
	assert.NoError(t, err)
	assert.False(t, saved)

	loaded, err := s.Load("", history.LoadReplace)
	assert.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 1, s.Store().Len())
}

func TestLoadMalformedLeavesStoreUnchanged(t *testing.T) {
	for name, doc := range map[string]string{
		"missing fields": `{"GET": [{"selected_http_verb": "GET"}]}`,
		"null":           `null`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

			s := New(nil, zerolog.Nop())
			s.Store().Append(model.RequestRecord{Method: model.MethodGet, URL: "http://a.test", ContentType: model.ContentPlain})

			loaded, err := s.Load(path, history.LoadReplace)
			require.Error(t, err)
			assert.False(t, loaded)
			assert.True(t, errdef.Is(err, errdef.CodeHistory))
			assert.Equal(t, 1, s.Store().Len())
		})
	}
}

func TestDispatchWithoutClient(t *testing.T) {
	_, err := Dispatch(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Request failed: no client configured", err.Error())
}
