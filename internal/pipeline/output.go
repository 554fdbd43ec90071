package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a rendered document kind.
type Format string

const (
	FormatText Format = "text"
	FormatDot  Format = "dot"
)

// Kind selects which documents a run writes.
type Kind string

const (
	KindAll  Kind = "all"
	KindText Kind = "text"
	KindDot  Kind = "dot"
)

// Stdout is the output path that means standard output.
const Stdout = "-"

// ParseKind validates an output type name. The empty string selects KindAll.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAll, nil
	case KindAll, KindText, KindDot:
		return k, nil
	}
	return "", fmt.Errorf("unknown output type %q (want all, text or dot)", s)
}

// Output is one document destination.
type Output struct {
	Format Format
	Path   string
}

// ResolveOutputs maps an output type and path to concrete destinations.
//
// For KindAll the outline and the graph never share a file: path gets the
// extension ".txt" and ".dot" respectively unless textPath or dotPath name a
// file explicitly. When path is Stdout both documents go there, outline first.
func ResolveOutputs(kind Kind, path, textPath, dotPath string) ([]Output, error) {
	if path == "" {
		path = Stdout
	}
	switch kind {
	case KindText:
		return []Output{{Format: FormatText, Path: firstNonEmpty(textPath, path)}}, nil
	case KindDot:
		return []Output{{Format: FormatDot, Path: firstNonEmpty(dotPath, path)}}, nil
	case KindAll, "":
	default:
		return nil, fmt.Errorf("unknown output type %q", kind)
	}

	text, dot := textPath, dotPath
	if path == Stdout {
		text = firstNonEmpty(text, Stdout)
		dot = firstNonEmpty(dot, Stdout)
	} else {
		text = firstNonEmpty(text, withExt(path, ".txt"))
		dot = firstNonEmpty(dot, withExt(path, ".dot"))
	}
	if text == dot && text != Stdout {
		return nil, fmt.Errorf("text and dot outputs both resolve to %q", text)
	}
	return []Output{
		{Format: FormatText, Path: text},
		{Format: FormatDot, Path: dot},
	}, nil
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
