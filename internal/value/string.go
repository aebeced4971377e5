package value

// String is lewi's immutable text type, grounded on
// original_source/LEngine/String.h. Indexing returns a new one-character
// String (no separate character/rune type, per String.h's
// "_make_small_string"); index assignment is always an error because
// string contents are immutable. Iteration yields successive
// one-character strings.
type String struct {
	Val string
}

func NewString(s string) *String { return &String{Val: s} }

func (s *String) Type() Type { return TypeString }

func (s *String) String() string { return s.Val }

func (s *String) Truthy() bool { return s.Val != "" }

func (s *String) BinaryOp(op string, rhs Value) (Value, error) {
	other, ok := rhs.(*String)
	if !ok {
		return nil, NewTypeError(op, TypeString, rhs.Type())
	}
	switch op {
	case "+":
		return NewString(s.Val + other.Val), nil
	case "==":
		return NewBoolean(s.Val == other.Val), nil
	case "!=":
		return NewBoolean(s.Val != other.Val), nil
	default:
		return nil, NewTypeError(op, TypeString, rhs.Type())
	}
}

func (s *String) Index(key Value) (Value, error) {
	n, ok := key.(*Number)
	if !ok {
		return nil, NewTypeError("index", TypeString, key.Type())
	}
	idx, err := AsIndex(n.Val)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(s.Val) {
		return nil, &BoundsError{Index: idx, Size: len(s.Val)}
	}
	return NewString(string(s.Val[idx])), nil
}

// SetIndex always fails: string contents are immutable
// (String.h's access_assign).
func (s *String) SetIndex(key, val Value) error {
	return &TypeError{Op: "string contents are immutable", Lhs: TypeString}
}

func (s *String) Iterator() (Value, error) {
	runes := []rune(s.Val)
	i := 0
	return NewNativeIterator(func() (Value, bool) {
		if i >= len(runes) {
			return nil, false
		}
		r := runes[i]
		i++
		return NewString(string(r)), true
	}), nil
}
