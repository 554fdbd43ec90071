package diag

// Field is one piece of structured context attached to a diagnostic.
type Field struct {
	Key   string
	Value any
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Line     int
	Fields   []Field
}

// Get returns the value of the first field named key.
func (d Diagnostic) Get(key string) (any, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
