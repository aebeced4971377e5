package value

// Null is the single absent-value singleton, grounded on
// original_source/LEngine/Null.h. It is a zero-size struct rather than a
// pointer singleton: all Null values compare equal by Go value equality,
// and there is nothing to reference-count.
type Null struct{}

func (Null) Type() Type { return TypeNull }

func (Null) String() string { return "Null" }

func (Null) Truthy() bool { return false }
