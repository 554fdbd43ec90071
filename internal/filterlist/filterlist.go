// Package filterlist loads the skip and column substring lists.
//
// A list file holds one substring per line. Blank lines and lines starting
// with "//" are ignored. A missing or unreadable file is an empty list.
package filterlist

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const commentPrefix = "//"

// Load reads the list stored at path. An empty path yields an empty list.
func Load(path string) []string {
	if path == "" {
		return []string{}
	}
	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("filter list not loaded")
		return []string{}
	}
	defer f.Close()

	out := Parse(f)
	log.WithFields(log.Fields{"path": path, "entries": len(out)}).Debug("filter list loaded")
	return out
}

// Parse reads a list from r. Read errors end the list early.
func Parse(r io.Reader) []string {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	sc := bufio.NewScanner(dec)
	out := []string{}
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		log.WithError(err).Debug("filter list truncated")
	}
	return out
}

// Lists holds the two substring lists used by the renderers.
type Lists struct {
	Skip    []string
	Columns []string
}

// LoadAll reads both list files concurrently and appends the inline entries
// to what was read. Inline entries follow file entries; duplicates are kept
// once.
func LoadAll(ctx context.Context, skipPath, columnsPath string, inline Lists) (Lists, error) {
	var files Lists
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		files.Skip = Load(skipPath)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		files.Columns = Load(columnsPath)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Lists{}, err
	}
	return Lists{
		Skip:    merge(files.Skip, inline.Skip),
		Columns: merge(files.Columns, inline.Columns),
	}, nil
}

func merge(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
