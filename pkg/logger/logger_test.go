package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestComponent_AgregaCampoYRespetaNivel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Output: &buf})

	stock := l.Component("stock")
	stock.Info().Msg("descartado")
	assert.Zero(t, buf.Len(), "info bajo el nivel warn")

	stock.Warn().Str("variation_id", "v1").Msg("notificación de stock bajo fallida")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stock", entry["component"])
	assert.Equal(t, "v1", entry["variation_id"])
	assert.Equal(t, "warn", entry["level"])
}
