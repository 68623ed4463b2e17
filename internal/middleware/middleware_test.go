package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minesgame/internal/testutil"
)

func TestLoggingCapturesStatusAndSize(t *testing.T) {
	var captured *ResponseWriter
	h := Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*ResponseWriter)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, captured)
	assert.Equal(t, http.StatusTeapot, captured.Status())
	assert.Equal(t, len("short and stout"), captured.Size())
}

func TestHijackRequiresHijacker(t *testing.T) {
	// httptest.ResponseRecorder does not implement http.Hijacker
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, rw.Status())
}

func TestRecoveryWritesErrorResponse(t *testing.T) {
	var recovered any
	h := Recovery(testutil.NopLogger(), func(w http.ResponseWriter, r *http.Request, err any) {
		recovered = err
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "boom", recovered)
}

func TestRecoveryReraisesAbort(t *testing.T) {
	h := Recovery(testutil.NopLogger(), func(w http.ResponseWriter, r *http.Request, err any) {
		t.Fatal("abort must not reach the panic handler")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
