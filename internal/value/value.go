// Package value implements lewi's polymorphic runtime value system: one
// tagged Type plus a set of optional capability interfaces (spec.md §3).
// A concrete variant implements only the capabilities that make sense
// for it; invoking an unsupported capability is always an error, never
// a panic.
//
// Values are shared via ordinary Go pointers/interfaces in this
// implementation; the reference-counted lifetime management described
// in spec.md §4.5 is the separate internal/pool package, which wraps a
// Value in a Handle. Value itself carries no ownership semantics.
package value

import "fmt"

// Type tags a runtime value's concrete kind.
type Type int

const (
	TypeNull Type = iota
	TypeNumber
	TypeBoolean
	TypeString
	TypeArray
	TypeFunction
	TypeModule
	TypeClass
	TypeIterator
	TypeRange
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeNumber:
		return "Number"
	case TypeBoolean:
		return "Boolean"
	case TypeString:
		return "String"
	case TypeArray:
		return "Array"
	case TypeFunction:
		return "Function"
	case TypeModule:
		return "Module"
	case TypeClass:
		return "Class"
	case TypeIterator:
		return "Iterator"
	case TypeRange:
		return "Range"
	default:
		return "Custom"
	}
}

// Value is the capability every runtime value implements: its type tag,
// its textual form (the "to_string" of spec.md §6), and its native
// truth value.
type Value interface {
	Type() Type
	String() string
	Truthy() bool
}

// BinaryOperable values accept a binary operator (+ - * / == != < <= > >=)
// with some right-hand operand.
type BinaryOperable interface {
	BinaryOp(op string, rhs Value) (Value, error)
}

// UnaryOperable values accept a prefix unary operator (+ - !).
type UnaryOperable interface {
	UnaryOp(op string) (Value, error)
}

// Indexable values support a[b] reads.
type Indexable interface {
	Index(key Value) (Value, error)
}

// IndexAssignable values support a[b] = v writes.
type IndexAssignable interface {
	SetIndex(key, val Value) error
}

// MemberReadable values support a.name reads.
type MemberReadable interface {
	Member(name string) (Value, error)
}

// MemberWritable values support a.name = v writes.
type MemberWritable interface {
	SetMember(name string, val Value) error
}

// Callable values support being invoked with a fixed-arity argument
// list. CallArity reports the expected argument count so the VM can
// raise spec.md §7's Runtime-arity error before ever entering the
// callee; callables that accept any number of arguments (ImportedFunction,
// variadic NativeMethods such as append and print) report -1 to opt out
// of arity checking.
type Callable interface {
	Value
	CallArity() int
}

// Iterable values can produce a (generally single-pass) Iterator.
type Iterable interface {
	Iterator() (Value, error)
}

// NativeInvoker is implemented by callables the VM executes directly in
// Go rather than by pushing a compiled frame: NativeMethod and
// ImportedFunction. Function and MemberFunction instead carry a
// CompiledProc the VM recognizes and runs through its normal frame
// machinery.
type NativeInvoker interface {
	Callable
	Invoke(args []Value) (Value, error)
}

// Bound is implemented by callables that carry an implicit receiver
// (MemberFunction) to be bound as "self" in the callee's frame.
type Bound interface {
	BoundReceiver() Value
}

// TypeError reports an operator or capability applied to operands of
// the wrong type (spec.md §7, "Runtime-type").
type TypeError struct {
	Op  string
	Lhs Type
	Rhs Type // TypeNull (zero value) when the operation is unary or has no rhs
}

func (e *TypeError) Error() string {
	if e.Rhs == TypeNull && e.Op != "" {
		return fmt.Sprintf("invalid operand type %s for %s", e.Lhs, e.Op)
	}
	return fmt.Sprintf("invalid operand types %s and %s for %s", e.Lhs, e.Rhs, e.Op)
}

// NewTypeError builds a binary TypeError.
func NewTypeError(op string, lhs, rhs Type) error { return &TypeError{Op: op, Lhs: lhs, Rhs: rhs} }

// NewUnaryTypeError builds a unary TypeError.
func NewUnaryTypeError(op string, operand Type) error { return &TypeError{Op: op, Lhs: operand} }

// BoundsError reports an out-of-range array/string index
// (spec.md §7, "Runtime-bounds").
type BoundsError struct {
	Index int
	Size  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("index %d out of range (size %d)", e.Index, e.Size)
}

// NonIntegerIndexError reports a non-exact-integer index value.
type NonIntegerIndexError struct{ Value float64 }

func (e *NonIntegerIndexError) Error() string {
	return fmt.Sprintf("index %v is not an integer", e.Value)
}

// MemberError reports access to an undeclared member name.
type MemberError struct {
	Type Type
	Name string
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("%s has no member %q", e.Type, e.Name)
}

// AsIndex validates that n is a non-negative exact integer and returns
// it as an int, per spec.md §3's "exact-integer validation
// (floor(x)=x)" rule for Array/String indices.
func AsIndex(n float64) (int, error) {
	if n < 0 || n != float64(int(n)) {
		return 0, &NonIntegerIndexError{Value: n}
	}
	return int(n), nil
}
