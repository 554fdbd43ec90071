package filterlist

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"plain", "ntdll\nkernel32\n", []string{"ntdll", "kernel32"}},
		{"comments and blanks", "// system\n\nntdll\n//kernel32\n", []string{"ntdll"}},
		{"crlf", "ntdll\r\nuser32\r\n", []string{"ntdll", "user32"}},
		{"bom", "\ufeffntdll\n", []string{"ntdll"}},
		{"inner spaces kept", " Worker::Run \n", []string{" Worker::Run "}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(strings.NewReader(tc.in)))
		})
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	got := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, Load(""))
}

func TestLoadAll(t *testing.T) {
	skip := writeFile(t, "skip.txt", "ntdll\n// c\nkernel32\n")
	cols := writeFile(t, "cols.txt", "app\n")

	got, err := LoadAll(context.Background(), skip, cols, Lists{
		Skip:    []string{"ntdll", "user32"},
		Columns: []string{"lib"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ntdll", "kernel32", "user32"}, got.Skip)
	assert.Equal(t, []string{"app", "lib"}, got.Columns)
}

func TestLoadAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadAll(ctx, "", "", Lists{})
	assert.ErrorIs(t, err, context.Canceled)
}
