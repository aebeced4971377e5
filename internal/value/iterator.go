package value

// Iterator is lewi's single-pass iteration protocol value, grounded on
// original_source/LEngine/Iterator.h: a value exposing exactly one
// member, "next", a zero-arg callable that returns the next element or
// Null once exhausted. The VM's ForLoop opcode drives iteration by
// repeatedly calling next() and treating a Null result as the signal to
// stop (spec.md §4.3).
type Iterator struct {
	next func() (Value, bool)
}

// NewNativeIterator wraps a Go closure as an Iterator value. The closure
// returns (element, true) while more elements remain, or (nil, false)
// once exhausted.
func NewNativeIterator(next func() (Value, bool)) *Iterator {
	return &Iterator{next: next}
}

func (it *Iterator) Type() Type { return TypeIterator }

func (it *Iterator) String() string { return "Iterator" }

func (it *Iterator) Truthy() bool { return true }

// Next drives iteration directly, bypassing the Member("next")/Invoke
// indirection — the VM's ForLoop opcode calls this on every iteration,
// so it must not allocate a NativeMethod closure each time the way
// Member("next") does.
func (it *Iterator) Next() (Value, bool) { return it.next() }

// Iterator satisfies Iterable with itself: a for loop over an
// already-Iterator value (e.g. one returned by a user function) must
// not require a second, distinct iterator type to wrap it.
func (it *Iterator) Iterator() (Value, error) { return it, nil }

func (it *Iterator) Member(name string) (Value, error) {
	if name != "next" {
		return nil, &MemberError{Type: TypeIterator, Name: name}
	}
	return NewNativeMethod("next", 0, func(args []Value) (Value, error) {
		v, ok := it.next()
		if !ok {
			return Null{}, nil
		}
		return v, nil
	}), nil
}
