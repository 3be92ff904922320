package world

import (
	"github.com/emberwake/server/internal/script"
)

// Module is one loaded script module: an ordered namespace of bindings.
// Bindings are immutable after world load.
type Module struct {
	name     string
	bindings map[string]script.Value
	order    []string
}

func NewModule(name string) *Module {
	return &Module{name: name, bindings: make(map[string]script.Value)}
}

func (m *Module) ModuleName() string { return m.name }

// Bind installs or replaces a top-level binding.
func (m *Module) Bind(name string, v script.Value) {
	if _, ok := m.bindings[name]; !ok {
		m.order = append(m.order, name)
	}
	m.bindings[name] = v
}

func (m *Module) Lookup(name string) (script.Value, bool) {
	v, ok := m.bindings[name]
	return v, ok
}

// Names returns binding names in definition order.
func (m *Module) Names() []string { return m.order }

func (m *Module) Kind() script.Kind       { return script.KindObject }
func (m *Module) Delegate() script.Object { return nil }

func (m *Module) GetMember(name string) (script.Value, bool) {
	return m.Lookup(name)
}

func (m *Module) SetMember(name string, v script.Value) error {
	m.Bind(name, v)
	return nil
}

func (m *Module) BriefName() (article, noun string) {
	return "", m.name
}
