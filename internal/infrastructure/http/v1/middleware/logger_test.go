package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stockflow/pkg/logger"
)

func newLoggedEngine(t *testing.T, h gin.HandlerFunc) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Trace())
	r.Use(Logger(&logger.Logger{SugaredLogger: zap.New(core).Sugar()}))
	r.Use(ErrorHandler())
	r.GET("/x", h)
	return r, logs
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

func TestLogger_HandlersLogThroughConfiguredLogger(t *testing.T) {
	r, logs := newLoggedEngine(t, func(c *gin.Context) {
		logger.Info(c.Request.Context(), "handler work", "lines", 2)
		_ = c.Error(errors.New("ledger unavailable"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{"handler work", "unhandled error", "http request"}, messages(logs))

	handlerEntry := logs.FilterMessage("handler work").All()[0]
	assert.Equal(t, "req-7", handlerEntry.ContextMap()["request_id"])
}

func TestLogger_SpanIDFromIncomingSpan(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})

	r, logs := newLoggedEngine(t, func(c *gin.Context) {
		logger.Info(c.Request.Context(), "handler work")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(trace.ContextWithRemoteSpanContext(context.Background(), parent))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	fields := logs.FilterMessage("handler work").All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, traceID.String(), w.Header().Get(HeaderTraceID))
}
