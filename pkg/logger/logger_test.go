package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConServicio(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Service: "facturacion-api", Output: &buf})

	l.Info().Msg("descartado por nivel")
	l.Warn().Str("invoice_id", "inv-1").Msg("resultado tardío")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev))
	assert.Equal(t, "warn", ev["level"])
	assert.Equal(t, "facturacion-api", ev["service"])
	assert.Equal(t, "inv-1", ev["invoice_id"])
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	c := l.Component("sweeper")
	c.Info().Msg("ok")
	assert.Contains(t, buf.String(), `"component":"sweeper"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("ruido"))
}
