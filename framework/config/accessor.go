package config

import "strings"

// Accessor reads values from the parsed YAML document by dotted path:
// "database.host" walks the "database" mapping to its "host" key. It
// satisfies environment.Accessor, so the document can be registered as a
// prefixed property source.
type Accessor struct {
	root map[string]any
}

// NewAccessor wraps an already parsed document.
func NewAccessor(root map[string]any) *Accessor {
	return &Accessor{root: root}
}

// IsReadable reports whether path resolves to a value.
func (a *Accessor) IsReadable(path string) bool {
	_, ok := a.lookup(path)
	return ok
}

// Read returns the value at path, or nil.
func (a *Accessor) Read(path string) any {
	v, _ := a.lookup(path)
	return v
}

func (a *Accessor) lookup(path string) (any, bool) {
	if path == "" || a.root == nil {
		return nil, false
	}
	var cur any = a.root
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
