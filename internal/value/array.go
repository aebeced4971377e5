package value

import "strings"

// Array is lewi's only collection type, grounded on
// original_source/LEngine/Array.h: a growable vector of Values.
// "append" and "size" are not syntax, they are bound member functions
// returned by Member — append mutates in place and returns the
// just-appended (last) element, size returns an element count, exactly
// matching Array.h's member_access.
type Array struct {
	Elems []Value
}

func NewArray(elems []Value) *Array { return &Array{Elems: elems} }

func (a *Array) Type() Type { return TypeArray }

func (a *Array) String() string {
	if len(a.Elems) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (a *Array) Truthy() bool { return true }

func (a *Array) Index(key Value) (Value, error) {
	n, ok := key.(*Number)
	if !ok {
		return nil, NewTypeError("index", TypeArray, key.Type())
	}
	idx, err := AsIndex(n.Val)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(a.Elems) {
		return nil, &BoundsError{Index: idx, Size: len(a.Elems)}
	}
	return a.Elems[idx], nil
}

func (a *Array) SetIndex(key, val Value) error {
	n, ok := key.(*Number)
	if !ok {
		return NewTypeError("index", TypeArray, key.Type())
	}
	idx, err := AsIndex(n.Val)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(a.Elems) {
		return &BoundsError{Index: idx, Size: len(a.Elems)}
	}
	a.Elems[idx] = val
	return nil
}

func (a *Array) Member(name string) (Value, error) {
	switch name {
	case "append":
		return NewNativeMethod("append", -1, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return nil, &TypeError{Op: "append requires at least one argument", Lhs: TypeArray}
			}
			a.Elems = append(a.Elems, args...)
			return a.Elems[len(a.Elems)-1], nil
		}), nil
	case "size":
		return NewNativeMethod("size", 0, func(args []Value) (Value, error) {
			return NewNumber(float64(len(a.Elems))), nil
		}), nil
	default:
		return nil, &MemberError{Type: TypeArray, Name: name}
	}
}

func (a *Array) Iterator() (Value, error) {
	i := 0
	return NewNativeIterator(func() (Value, bool) {
		if i >= len(a.Elems) {
			return nil, false
		}
		v := a.Elems[i]
		i++
		return v, true
	}), nil
}
