package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("world", &buf, WARN)

	logger.Info("не должно попасть")
	logger.Warn("чанк %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [world] чанк 7")

	logger.SetLevels(TRACE, TRACE)
	assert.True(t, logger.Enabled(TRACE))
}

func TestManagerWithoutFiles(t *testing.T) {
	Configure("", INFO, INFO)
	defer Configure("logs", INFO, DEBUG)

	lm := newLoggerManager()
	a, err := lm.GetLogger("b-component")
	require.NoError(t, err)
	b, err := lm.GetLogger("b-component")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = lm.GetLogger("a-component")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-component", "b-component"}, lm.Components())
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.Components())
}

func TestComponentLevels(t *testing.T) {
	Configure("", INFO, INFO)
	defer Configure("logs", INFO, DEBUG)

	lm := newLoggerManager()
	existing, err := lm.GetLogger("world")
	require.NoError(t, err)
	assert.False(t, existing.Enabled(TRACE))

	require.NoError(t, lm.ApplyLevels(map[string]string{"world": "trace", "storage": "error"}))
	assert.True(t, existing.Enabled(TRACE), "созданный логгер перестроен")

	later, err := lm.GetLogger("storage")
	require.NoError(t, err)
	assert.False(t, later.Enabled(WARN), "переопределение применено при создании")

	assert.Error(t, lm.ApplyLevels(map[string]string{"http": "loud"}))
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	Configure(dir, ERROR, DEBUG)
	defer Configure("logs", INFO, DEBUG)

	logger, err := NewLogger("storage")
	require.NoError(t, err)
	logger.Debug("в файл")
	assert.True(t, logger.Enabled(DEBUG))
	require.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "повторное закрытие безопасно")
}
