package script

import "strings"

// Ref identifies a content-defined value. A relative ref carries only a name
// and is resolved against the current module and the builtins module; an
// absolute ref names its module explicitly.
type Ref struct {
	Module string
	Name   string
}

func RelativeRef(name string) Ref {
	return Ref{Name: name}
}

func AbsoluteRef(module, name string) Ref {
	return Ref{Module: module, Name: name}
}

// ParseRef parses "name" or "module.name".
func ParseRef(s string) Ref {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return Ref{Module: s[:i], Name: s[i+1:]}
	}
	return Ref{Name: s}
}

func (r Ref) IsAbsolute() bool { return r.Module != "" }

func (r Ref) IsZero() bool { return r.Module == "" && r.Name == "" }

// Resolved returns r made absolute against the given module name, if it is
// not already absolute.
func (r Ref) Resolved(module string) Ref {
	if r.IsAbsolute() {
		return r
	}
	return Ref{Module: module, Name: r.Name}
}

func (r Ref) String() string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "." + r.Name
}
