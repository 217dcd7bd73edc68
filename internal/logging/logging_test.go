package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		logName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "kreslogs",
			logName: "kres",
			want:    filepath.Join("kreslogs", "kres.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./kreslogs",
			logName: "kres",
			want:    filepath.Join(".", "kreslogs", "kres.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "kres"),
			logName: "kres",
			want:    filepath.Join("/var", "log", "kres", "kres.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.logName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenLogFile_RotatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kres.log")

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenLogFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cur)
}
