package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

func TestUnitTestNewReturnsErrorForUnknownLevel(t *testing.T) {
	_, err := logging.New("VERBOSE")

	assert.Error(t, err)
}

func TestUnitTestNewWithWriterWritesJSONAtConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.NewWithWriter("INFO", &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("path", "/").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "/", line["path"])
	assert.Equal(t, "info", line["level"])
}
