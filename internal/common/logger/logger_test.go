package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		With(map[string]interface{}{"jobKey": int64(42)}).
		WithError(errors.New("boom"))

	log.Warn("candidate skipped", map[string]interface{}{
		"candidateId": "f-1",
		"cause":       errors.New("bad date"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "candidate skipped", entries[0].Message)
		assert.Equal(t, int64(42), ctx["jobKey"])
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "bad date", ctx["cause"])
		assert.Equal(t, "f-1", ctx["candidateId"])
	}
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Info("ignored", nil)
		log.WithFields(nil).Error("ignored", map[string]interface{}{"k": "v"})
	})
}
