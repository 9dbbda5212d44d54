package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/training-api/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerReady(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	handler := NewMetricsHandler(nil, pingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") }), zap.New(core))
	c, rec := newContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "readiness check failed", logs.All()[0].Message)

	handler = NewMetricsHandler(nil, pingFunc(func(context.Context) error { return nil }), nil)
	c, rec = newContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordLogin(service.LoginResultSuccess)
	handler := NewMetricsHandler(metrics, nil, nil)

	c, rec := newContext(http.MethodGet, "/metrics", nil, nil)
	handler.Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `training_logins_total{result="success"} 1`)

	c, rec = newContext(http.MethodGet, "/metrics", nil, nil)
	NewMetricsHandler(nil, nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
