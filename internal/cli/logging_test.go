package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "path", "a.hack")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "a.hack", rec["path"])

	buf.Reset()
	logger, err = newLogger(&buf, "DEBUG", "")
	require.NoError(t, err)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestNewLogger_Invalid(t *testing.T) {
	t.Parallel()

	_, err := newLogger(&bytes.Buffer{}, "loud", "text")
	assert.ErrorContains(t, err, `invalid log level "loud"`)

	_, err = newLogger(&bytes.Buffer{}, "info", "xml")
	assert.ErrorContains(t, err, `invalid log format "xml"`)
}
