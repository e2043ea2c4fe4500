package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestFromWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := FromWriter(&buf, FormatJSON, zerolog.InfoLevel)

	log.Debug().Msg("hidden")
	log.Info().Str("document", "customer").Msg("saved")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"document":"customer"`)
	assert.Contains(t, out, `"message":"saved"`)
}

func TestFromWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := FromWriter(&buf, FormatConsole, zerolog.DebugLevel)
	log.Debug().Msg("tree loaded")
	assert.Contains(t, buf.String(), "tree loaded")
	assert.NotContains(t, buf.String(), "{")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewdef.log")
	log, closeFn, err := New(Config{Level: "debug", Format: FormatJSON, Output: path})
	require.NoError(t, err)
	log.Debug().Msg("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	_, _, err = New(Config{Level: "nope"})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}
