package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPMiddleware_StoresLoggerAndKeepsStatus(t *testing.T) {
	logger := zap.NewNop()

	router := chi.NewRouter()
	router.Use(HTTPMiddleware("checkout", logger))
	router.Get("/charge/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, LoggerFromContext(r.Context(), nil))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charge/abc", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	fallback := zap.NewNop()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Same(t, fallback, LoggerFromContext(req.Context(), fallback))
}

func TestTransport_PassesRequestThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Transport("checkout", nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}
