package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	httpclient "hreq/internal/http"
	"hreq/internal/model"
	"hreq/internal/render"
	"hreq/internal/session"
)

func TestGetEchoesProducts(t *testing.T) {
	router := NewRouter(zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/?page=2&sort=name", nil)
	req.Header.Set("Authorization", "Bearer 123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, gjson.Valid(body))
	assert.Equal(t, "This is a response to a GET request.", gjson.Get(body, "description").String())
	assert.Equal(t, "Laptop", gjson.Get(body, "request-body.products.0.name").String())
	assert.Equal(t, "Bearer 123", gjson.Get(body, "request-headers.Authorization").String())
	assert.Equal(t, "2", gjson.Get(body, "request-parameters.page").String())
	assert.Equal(t, "name", gjson.Get(body, "request-parameters.sort").String())
}

func TestPostEchoesJSONBody(t *testing.T) {
	router := NewRouter(zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x", "n": [1, 2]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Equal(t, "x", gjson.Get(body, "request-body.name").String())
	assert.Equal(t, int64(2), gjson.Get(body, "request-body.n.1").Int())
}

func TestNonJSONBodyIsNull(t *testing.T) {
	router := NewRouter(zerolog.Nop())

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/", strings.NewReader("<a/>"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		body := rec.Body.String()
		assert.Equal(t, gjson.Null, gjson.Get(body, "request-body").Type, method)
		assert.True(t, gjson.Get(body, "request-body").Exists(), method)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	router := NewRouter(zerolog.Nop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("TRACE", "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionAgainstEchoServer(t *testing.T) {
	srv := httptest.NewServer(NewRouter(zerolog.Nop()))
	defer srv.Close()

	s := session.New(httpclient.NewClient(zerolog.Nop()), zerolog.Nop())
	for _, method := range model.Methods {
		rec := model.RequestRecord{
			Method:      method,
			URL:         srv.URL + "/",
			ContentType: model.ContentJSON,
			Body:        `{"hello": "world"}`,
			Headers:     `{"X-Test": "yes"}`,
		}
		result, err := s.Send(context.Background(), rec)
		require.NoError(t, err, method.String())
		assert.Equal(t, render.KindJSON, result.Outcome.Kind)

		if method == model.MethodHead {
			assert.Empty(t, result.Outcome.Text)
			continue
		}
		text := result.Outcome.Text
		assert.Contains(t, text, "\n    \"description\"")
		assert.Equal(t, "yes", gjson.Get(text, "request-headers.X-Test").String())
		assert.Equal(t, "application/json", gjson.Get(text, "request-headers.Content-Type").String())

		switch method {
		case model.MethodPost, model.MethodPut, model.MethodPatch:
			assert.Equal(t, "world", gjson.Get(text, "request-body.hello").String(), method.String())
		case model.MethodGet:
			assert.True(t, gjson.Get(text, "request-body.products").IsArray())
		default:
			assert.Equal(t, gjson.Null, gjson.Get(text, "request-body").Type, method.String())
		}
	}

	for _, method := range model.Methods {
		assert.Equal(t, 1, s.Store().Count(method), method.String())
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, "127.0.0.1:0", zerolog.Nop()) }()

	cancel()
	assert.NoError(t, <-done)
}
