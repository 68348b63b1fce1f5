package runlog

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName_TimestampFormat(t *testing.T) {
	start := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "deploy_20240309_143005.log", FileName(start))
}

func TestOpen_CreatesAppendOnlyFile(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir, time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC))
	require.NoError(t, err)
	defer log.Close()

	_, err = os.Stat(log.Name())
	assert.NoError(t, err)
}

func TestWriter_DuplicatesIntoFile(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir, time.Now())
	require.NoError(t, err)

	_, err = log.Writer().Write([]byte("remote output line\n"))
	require.NoError(t, err)
	require.NoError(t, log.Close())

	content, err := os.ReadFile(log.Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "remote output line")
}
