package submission

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoaderListOrdersByIdentity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Smith.pdf", "x")
	writeFile(t, dir, "anderson.pdf", "x")
	writeFile(t, dir, "Zhang.pdf", "x")

	subs, err := NewLoader(zerolog.Nop()).List(dir)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	require.Equal(t, "anderson", subs[0].Identity)
	require.Equal(t, "smith", subs[1].Identity)
	require.Equal(t, "zhang", subs[2].Identity)
	require.Equal(t, filepath.Join(dir, "anderson.pdf"), subs[0].SourcePath)
}

func TestLoaderListIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		writeFile(t, dir, name, "x")
	}

	loader := NewLoader(zerolog.Nop())
	first, err := loader.List(dir)
	require.NoError(t, err)
	second, err := loader.List(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoaderListSkipsIneligibleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smith.pdf", "x")
	writeFile(t, dir, "notes.docx", "x")
	writeFile(t, dir, ".hidden.pdf", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	subs, err := NewLoader(zerolog.Nop()).List(dir)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "smith", subs[0].Identity)
}

func TestLoaderListMissingDir(t *testing.T) {
	_, err := NewLoader(zerolog.Nop()).List(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingDir))
}

func TestLoaderListEmptyDir(t *testing.T) {
	_, err := NewLoader(zerolog.Nop()).List(t.TempDir())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoSubmissions))
}

func TestLoaderListRejectsDuplicateIdentities(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smith.pdf", "x")
	writeFile(t, dir, "Smith.txt", "x")

	_, err := NewLoader(zerolog.Nop()).List(dir)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicateIdentity))
}

func TestIdentityFromFilename(t *testing.T) {
	cases := map[string]string{
		"Smith.pdf":         "smith",
		"Van_Der-Berg.pdf":  "van der berg",
		"O'Neil.PDF":        "o'neil",
		"garcia__lopez.txt": "garcia lopez",
	}
	for name, want := range cases {
		require.Equal(t, want, IdentityFromFilename(name), name)
	}
}
