package logger_adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"cost-engine-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapter_JSONCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelDebug, IsJSON: true})

	log.WithFields(port.Fields{"use_case": "EstimateCost"}).Error("Estimate failed", errors.New("boom"), port.Fields{"source": "marshallSwift"})

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "Estimate failed", rec["msg"])
	assert.Equal(t, "EstimateCost", rec["use_case"])
	assert.Equal(t, "marshallSwift", rec["source"])
	assert.Equal(t, "boom", rec["err"])
}

func TestSlogAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	log.Info("hidden", nil)
	log.Debug("hidden", nil)
	log.Warn("shown", port.Fields{"k": 1})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "k=1")
}

func TestSlogAdapter_Tint(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(SlogConfig{Writer: &buf, UseColor: true})

	log.Info("Heatmap aggregated", port.Fields{"entities": 3})
	assert.Contains(t, buf.String(), "Heatmap aggregated")
}

type recordingPoster struct {
	tags     []string
	messages []port.Fields
	closed   bool
}

func (p *recordingPoster) Post(tag string, message interface{}) error {
	p.tags = append(p.tags, tag)
	p.messages = append(p.messages, message.(port.Fields))
	return nil
}

func (p *recordingPoster) Close() error {
	p.closed = true
	return nil
}

func TestFluentLoggerAdapter(t *testing.T) {
	poster := &recordingPoster{}
	log, err := NewFluentLoggerAdapter(poster, slog.LevelInfo)
	require.NoError(t, err)

	scoped := log.WithFields(port.Fields{"service": "cost-engine"})
	scoped.Debug("dropped", nil)
	scoped.Error("failed", errors.New("boom"), port.Fields{"source": "x"})

	require.Len(t, poster.messages, 1)
	assert.Equal(t, "error", poster.tags[0])
	msg := poster.messages[0]
	assert.Equal(t, "cost-engine", msg["service"])
	assert.Equal(t, "x", msg["source"])
	assert.Equal(t, "boom", msg["error"])
	assert.Equal(t, "failed", msg["message"])

	require.NoError(t, log.Close())
	assert.True(t, poster.closed)

	_, err = NewFluentLoggerAdapter(nil, nil)
	assert.Error(t, err)
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	la := NewSlogAdapter(SlogConfig{Writer: &a})
	lb := NewSlogAdapter(SlogConfig{Writer: &b})

	single, err := NewMultiloggerAdapter(la)
	require.NoError(t, err)
	assert.Same(t, la, single)

	multi, err := NewMultiloggerAdapter(la, lb)
	require.NoError(t, err)
	multi.WithFields(port.Fields{"trace_id": "t-1"}).Info("hello", nil)

	for _, out := range []string{a.String(), b.String()} {
		assert.True(t, strings.Contains(out, "hello") && strings.Contains(out, "trace_id=t-1"), out)
	}

	_, err = NewMultiloggerAdapter()
	assert.Error(t, err)
}
