package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTimestamp(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{
			name: "json handler",
			line: `{"time":"2024-01-15T10:30:45.123Z","level":"INFO","msg":"Server listening"}`,
			want: time.Date(2024, 1, 15, 10, 30, 45, 123_000_000, time.UTC),
		},
		{
			name: "text handler",
			line: "[2024-01-15 10:30:45] [INFO] Server listening address=0.0.0.0:5000",
			want: time.Date(2024, 1, 15, 10, 30, 45, 0, time.Local),
		},
		{
			name: "rfc3339 prefix",
			line: "2024-01-15T10:30:45Z something happened",
			want: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
		},
		{
			name: "no timestamp",
			line: "plain line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTimestamp(tt.line)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestTailLines(t *testing.T) {
	input := "one\ntwo\nthree\nfour\n"

	t.Run("LastN", func(t *testing.T) {
		lines, err := tailLines(strings.NewReader(input), 2, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "four"}, lines)
	})

	t.Run("FewerThanN", func(t *testing.T) {
		lines, err := tailLines(strings.NewReader(input), 10, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three", "four"}, lines)
	})

	t.Run("ZeroLines", func(t *testing.T) {
		lines, err := tailLines(strings.NewReader(input), 0, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("Since", func(t *testing.T) {
		logs := `{"time":"2024-01-15T10:00:00Z","msg":"old"}
{"time":"2024-01-15T12:00:00Z","msg":"new"}
untimed
`
		since := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
		lines, err := tailLines(strings.NewReader(logs), 10, since)
		require.NoError(t, err)
		assert.Equal(t, []string{`{"time":"2024-01-15T12:00:00Z","msg":"new"}`, "untimed"}, lines)
	})
}
