package content_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/digigm/internal/game/content"
)

type entry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadDirectory_ConcatenatesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "- id: b1\n  name: B1\n")
	writeFile(t, dir, "a.yml", "- id: a1\n  name: A1\n- id: a2\n  name: A2\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	got, err := content.LoadDirectory[entry](dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a1", "a2", "b1"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestLoadDirectory_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "- id: x\n  colour: red\n")
	_, err := content.LoadDirectory[entry](dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := content.LoadDirectory[entry](filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDecode_EmptyInput(t *testing.T) {
	got, err := content.Decode[entry](strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
