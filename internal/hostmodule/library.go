// Package hostmodule implements ImportDll's dynamic-library-loading
// seam (vm.ModuleLoader, value.SymbolResolver) with purego's cgo-free
// dlopen/dlsym, grounded on original_source/LEngine/DllModule.h's
// LoadLibraryA/GetProcAddress pair.
package hostmodule

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/rs/zerolog"

	"github.com/kristofer/lewi/internal/pool"
	"github.com/kristofer/lewi/internal/value"
)

// Loader opens shared libraries with purego, deduplicating repeated
// imports of the same path through a reference-counted internal/pool
// handle rather than reopening the library every time — the same
// repeated-import case DllModule.h itself never has to worry about,
// since Windows's own loader already refcounts HMODULEs internally.
type Loader struct {
	pool    *pool.Pool
	handles map[string]pool.Handle
	log     zerolog.Logger
}

// NewLoader creates a Loader with no libraries opened yet. Diagnostic
// logging is silent by default; call SetLogger to observe loads.
func NewLoader() *Loader {
	return &Loader{pool: pool.New(), handles: make(map[string]pool.Handle), log: zerolog.Nop()}
}

// SetLogger installs l as this Loader's diagnostic logger.
func (l *Loader) SetLogger(logger zerolog.Logger) { l.log = logger }

// Load opens path (or retains the existing open handle, if this Loader
// already opened it) and returns it as a value.SymbolResolver, matching
// vm.ModuleLoader's contract.
func (l *Loader) Load(path string) (value.SymbolResolver, error) {
	if h, ok := l.handles[path]; ok {
		l.log.Debug().Str("path", path).Msg("dll module reused")
		return h.Retain().Value().(*Handle), nil
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		l.log.Debug().Str("path", path).Err(err).Msg("dll module load failed")
		return nil, fmt.Errorf("failed to load dll module %q: %w", path, err)
	}
	lib := &Handle{path: path}
	lib.handle = handle
	l.handles[path] = l.pool.Alloc(8, lib)
	l.log.Debug().Str("path", path).Msg("dll module loaded")
	return lib, nil
}

// Release drops this Loader's reference to path, opened earlier via
// Load. It exists for symmetry with Load and for tests asserting the
// refcounting behavior; nothing in the VM calls it today, since lewi
// has no explicit "unload module" syntax (spec.md names only ImportDll).
func (l *Loader) Release(path string) {
	if h, ok := l.handles[path]; ok {
		h.Release()
	}
}

// Handle is one opened shared object. Release is pool.Destructible's
// hook, run once the last reference is gone; it is a deliberate no-op
// beyond that bookkeeping, because purego exposes no portable dlclose
// and original_source/LEngine/DllModule.h has the same limitation — it
// never calls FreeLibrary either, so an imported module simply stays
// mapped for the rest of the process's lifetime.
type Handle struct {
	path   string
	handle uintptr
}

func (lib *Handle) Release() {}

// Close is Release's public name, for callers that hold a *Handle
// directly (rather than through the pool) and want to express intent
// to stop using it. It has the same no-op body and the same reason.
func (lib *Handle) Close() error { return nil }

// nativeFn is the fixed FFI signature every symbol hostmodule resolves
// must match: one float64 argument, one float64 result — the shape of
// a simple numeric C library call (libm's sin, cos, sqrt, fabs, ...).
// original_source/LEngine/CPPLeFunction.h's own FFI_FUNC
// (LeObject(*)(span<LeObject>&, MemoryManager&)) is a C++-only
// convention no arbitrary compiled shared library could satisfy; this
// is the closest analog purego's cgo-free function registration can
// actually express against a real .so/.dylib/.dll.
type nativeFn func(float64) float64

// Symbol resolves name to a callable matching value.SymbolResolver.
// value.Module caches the result itself, so Symbol is free to re-Dlsym
// and re-register on every call without its own cache.
func (lib *Handle) Symbol(name string) (func(args []value.Value) (value.Value, error), error) {
	ptr, err := purego.Dlsym(lib.handle, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q from %q: %w", name, lib.path, err)
	}
	var f nativeFn
	purego.RegisterFunc(&f, ptr)
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects exactly 1 numeric argument, got %d", name, len(args))
		}
		n, ok := args[0].(*value.Number)
		if !ok {
			return nil, value.NewUnaryTypeError(name, args[0].Type())
		}
		return value.NewNumber(f(n.Val)), nil
	}, nil
}
