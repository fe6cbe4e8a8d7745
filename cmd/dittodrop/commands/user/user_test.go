package user

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrop/internal/cli/output"
	"github.com/marmos91/dittodrop/pkg/credentials"
)

func TestUserList_Table(t *testing.T) {
	users := newUserList([]credentials.Entry{
		{Username: "alice", Secret: "wonderland"},
		{Username: "bob", Secret: "builder"},
	})

	var buf bytes.Buffer
	require.NoError(t, output.PrintTable(&buf, users))

	out := buf.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "wonderland")
}

func TestUserList_JSONOmitsSecrets(t *testing.T) {
	users := newUserList([]credentials.Entry{{Username: "alice", Secret: "wonderland"}})

	var buf bytes.Buffer
	require.NoError(t, output.PrintJSON(&buf, users))

	assert.Contains(t, buf.String(), `"username": "alice"`)
	assert.NotContains(t, buf.String(), "wonderland")
}

func TestOpenStore_UsesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DITTODROP_AUTH_CREDENTIALS_FILE", filepath.Join(dir, "users.txt"))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", filepath.Join(dir, "missing.yaml"), "")

	store, err := openStore(cmd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "users.txt"), store.Path())
}
