package diagfmt

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color bool
	// Path prefixes every location, usually the trace file.
	Path       string
	ShowFields bool
	Max        int // обрезка вывода, не Bag
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Path          string
	Max           int // обрезка вывода, не Bag
	IncludeFields bool
}
