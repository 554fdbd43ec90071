package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindAll, false},
		{"all", KindAll, false},
		{"TEXT", KindText, false},
		{" dot ", KindDot, false},
		{"svg", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveOutputs(t *testing.T) {
	cases := []struct {
		name     string
		kind     Kind
		path     string
		textPath string
		dotPath  string
		want     []Output
	}{
		{
			name: "text only",
			kind: KindText, path: "out.log",
			want: []Output{{FormatText, "out.log"}},
		},
		{
			name: "dot only",
			kind: KindDot, path: "out.gv",
			want: []Output{{FormatDot, "out.gv"}},
		},
		{
			name: "all replaces extension",
			kind: KindAll, path: "dir/out.gv",
			want: []Output{{FormatText, "dir/out.txt"}, {FormatDot, "dir/out.dot"}},
		},
		{
			name: "all without extension",
			kind: KindAll, path: "out",
			want: []Output{{FormatText, "out.txt"}, {FormatDot, "out.dot"}},
		},
		{
			name: "all with explicit paths",
			kind: KindAll, path: "out", textPath: "tree.txt", dotPath: "graph.gv",
			want: []Output{{FormatText, "tree.txt"}, {FormatDot, "graph.gv"}},
		},
		{
			name: "all to stdout",
			kind: KindAll, path: "-",
			want: []Output{{FormatText, "-"}, {FormatDot, "-"}},
		},
		{
			name: "empty path means stdout",
			kind: KindText,
			want: []Output{{FormatText, "-"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveOutputs(tc.kind, tc.path, tc.textPath, tc.dotPath)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveOutputsRejectsSharedFile(t *testing.T) {
	_, err := ResolveOutputs(KindAll, "out", "same.txt", "same.txt")
	assert.Error(t, err)

	_, err = ResolveOutputs(Kind("png"), "out", "", "")
	assert.Error(t, err)
}
