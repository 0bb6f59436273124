package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxBody caps how much of a request body is echoed back.
const maxBody = 1 << 20

// Products is the sample document GET requests receive as request-body.
const Products = `{
    "products": [
        {"id": 1, "name": "Laptop", "price": 999.99, "in_stock": true},
        {"id": 2, "name": "Headphones", "price": 59.5, "in_stock": false},
        {"id": 3, "name": "Keyboard", "price": 45, "in_stock": true}
    ]
}`

var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions, http.MethodHead,
}

// NewRouter returns a router answering every supported method at "/".
func NewRouter(log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(logRequests(log))
	router.HandleFunc("/", handleEcho).Methods(methods...)
	return router
}

func logRequests(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info().Str("method", r.Method).Str("path", r.URL.Path).Msgf("Received a %s request.", r.Method)
			next.ServeHTTP(w, r)
		})
	}
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	reply, err := buildReply(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(reply)
}

func buildReply(r *http.Request) ([]byte, error) {
	reply := []byte(`{}`)
	var err error

	reply, err = sjson.SetBytes(reply, "description", fmt.Sprintf("This is a response to a %s request.", r.Method))
	if err != nil {
		return nil, err
	}

	body, err := requestBody(r)
	if err != nil {
		return nil, err
	}
	if reply, err = sjson.SetRawBytes(reply, "request-body", body); err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	if r.Host != "" {
		headers["Host"] = r.Host
	}
	if reply, err = sjson.SetBytes(reply, "request-headers", headers); err != nil {
		return nil, err
	}

	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return sjson.SetBytes(reply, "request-parameters", params)
}

// requestBody is the products sample for GET, otherwise the request's JSON
// body, or null when it has none.
func requestBody(r *http.Request) ([]byte, error) {
	if r.Method == http.MethodGet {
		return []byte(Products), nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return []byte("null"), nil
	}
	return data, nil
}

// ListenAndServe runs the echo server on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Handler:      NewRouter(log),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("echo server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
