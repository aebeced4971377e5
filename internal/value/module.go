package value

import "fmt"

// SymbolResolver is implemented by internal/hostmodule's dynamic library
// handle. Module stays independent of purego so that the value package
// never needs cgo or platform-specific build tags.
type SymbolResolver interface {
	Symbol(name string) (func(args []Value) (Value, error), error)
}

// Module is a loaded host-native dynamic library, grounded on
// original_source/LEngine/DllModule.h: member access lazily resolves
// and caches a native symbol as an ImportedFunction, matching
// DllModule's member_access/GetProcAddress-on-first-use behavior.
type Module struct {
	Name     string
	resolver SymbolResolver
	cache    map[string]*ImportedFunction
}

func NewModule(name string, resolver SymbolResolver) *Module {
	return &Module{Name: name, resolver: resolver, cache: make(map[string]*ImportedFunction)}
}

func (m *Module) Type() Type { return TypeModule }

func (m *Module) String() string { return fmt.Sprintf("Dll Module %q", m.Name) }

func (m *Module) Truthy() bool { return true }

func (m *Module) Member(name string) (Value, error) {
	if fn, ok := m.cache[name]; ok {
		return fn, nil
	}
	sym, err := m.resolver.Symbol(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q from module %q: %w", name, m.Name, err)
	}
	fn := NewImportedFunction(name, sym)
	m.cache[name] = fn
	return fn, nil
}
