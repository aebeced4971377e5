package value

// Boolean is grounded on original_source/LEngine/Boolean.h: it prints as
// "True"/"False" and, per Boolean.h's own comment ("we handle boolean
// operations as if boolean was a number"), delegates binary operators to
// Number by coercing itself to 0/1.
type Boolean struct {
	Val bool
}

func NewBoolean(v bool) *Boolean { return &Boolean{Val: v} }

func (b *Boolean) Type() Type { return TypeBoolean }

func (b *Boolean) String() string {
	if b.Val {
		return "True"
	}
	return "False"
}

func (b *Boolean) Truthy() bool { return b.Val }

func (b *Boolean) BinaryOp(op string, rhs Value) (Value, error) {
	lhs := Number{Val: 0}
	if b.Val {
		lhs.Val = 1
	}
	return lhs.BinaryOp(op, rhs)
}

func (b *Boolean) UnaryOp(op string) (Value, error) {
	if op == "!" {
		return NewBoolean(!b.Val), nil
	}
	return nil, NewUnaryTypeError(op, TypeBoolean)
}
