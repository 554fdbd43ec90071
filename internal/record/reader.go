package record

import (
	"bufio"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxLineSize bounds a single trace row. Demangled template signatures get
// long, so this is far above bufio's default.
const MaxLineSize = 16 << 20

// Reader yields records from a trace export until the first row with fewer
// than four cells or the end of the input.
type Reader struct {
	sc        *bufio.Scanner
	memo      *Memo
	line      int
	done      bool
	truncated bool
}

// NewReader wraps r. A leading UTF-8 byte order mark is dropped.
func NewReader(r io.Reader) *Reader {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Reader{sc: sc}
}

// WithMemo makes the reader split result cells through m.
func (r *Reader) WithMemo(m *Memo) *Reader {
	r.memo = m
	return r
}

// Next returns the next record. It reports false once the input is exhausted
// or a malformed row was met; every later call reports false as well.
func (r *Reader) Next() (Record, bool) {
	if r.done {
		return Record{}, false
	}
	if !r.sc.Scan() {
		r.done = true
		return Record{}, false
	}
	r.line++
	cells, ok := splitCells(r.sc.Text())
	if !ok {
		r.done = true
		r.truncated = true
		return Record{}, false
	}
	if r.memo != nil {
		return r.memo.New(cells[0], cells[1], cells[2], cells[3]), true
	}
	return New(cells[0], cells[1], cells[2], cells[3]), true
}

// Line returns the 1-based number of the row last read.
func (r *Reader) Line() int { return r.line }

// Truncated reports whether reading stopped on a malformed row rather than at
// the end of the input.
func (r *Reader) Truncated() bool { return r.truncated }

// Err returns the first non-EOF read error.
func (r *Reader) Err() error { return r.sc.Err() }
