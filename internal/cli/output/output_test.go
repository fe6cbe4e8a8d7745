package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: " yml ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Username", "Area")
	table.AddRow("alice", "server_storage/alice")
	table.AddRow("bob", "server_storage/bob")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, table))

	out := buf.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "server_storage/bob")
}

func TestPrint_StructuredFormats(t *testing.T) {
	data := map[string]int{"file_transfers": 3}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, data))
	assert.JSONEq(t, `{"file_transfers": 3}`, buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, FormatYAML, data))
	assert.Equal(t, "file_transfers: 3\n", buf.String())

	// non-table data falls back to JSON
	buf.Reset()
	require.NoError(t, Print(&buf, FormatTable, data))
	assert.JSONEq(t, `{"file_transfers": 3}`, buf.String())
}
