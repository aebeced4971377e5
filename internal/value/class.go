package value

// Class is lewi's prototype-style object value, grounded on
// original_source/LEngine/Class.h. There is no instantiation syntax —
// a "class Foo: ... end" declaration directly builds one Class object
// bound to the global name Foo — so Class only ever has singleton
// instances, never a separate constructor/Instance split. Members are
// kept in declaration order (original_source uses an unordered_map), and
// that order is visible to programs: iterating a Class yields its member
// names in declaration order (see Iterator below).
type Class struct {
	Name    string
	order   []string
	members map[string]Value
}

func NewClass(name string) *Class {
	return &Class{Name: name, members: make(map[string]Value)}
}

func (c *Class) Type() Type { return TypeClass }

func (c *Class) String() string { return c.Name }

func (c *Class) Truthy() bool { return true }

// Member reads a declared member, erroring for any undeclared name
// (Class.h's member_access throws ferr::invalid_member) — a stricter,
// declared-set policy than Function's map-like static variables.
func (c *Class) Member(name string) (Value, error) {
	if v, ok := c.members[name]; ok {
		return v, nil
	}
	return nil, &MemberError{Type: TypeClass, Name: name}
}

// SetMember reassigns an already-declared member (Class.h's
// access_assign also requires the member to already exist).
func (c *Class) SetMember(name string, val Value) error {
	if _, ok := c.members[name]; !ok {
		return &MemberError{Type: TypeClass, Name: name}
	}
	c.members[name] = val
	return nil
}

// MakeMember declares a new member on the class, called while
// evaluating the class body. A function-valued member is rebound as a
// MemberFunction receiving this Class as its receiver, matching
// Class.h's make_member.
func (c *Class) MakeMember(self Value, name string, val Value) {
	if fn, ok := val.(*Function); ok {
		val = NewMemberFunction(self, fn.Proc)
	}
	if _, exists := c.members[name]; !exists {
		c.order = append(c.order, name)
	}
	c.members[name] = val
}

// Members returns declared member names in declaration order.
func (c *Class) Members() []string { return append([]string(nil), c.order...) }

// Iterator walks a Class's own declared member names, in declaration
// order, as Strings — the reflection surface a "for name in SomeClass"
// loop uses to enumerate a class's shape, built directly on Members.
func (c *Class) Iterator() (Value, error) {
	names := c.Members()
	i := 0
	return NewNativeIterator(func() (Value, bool) {
		if i >= len(names) {
			return nil, false
		}
		v := NewString(names[i])
		i++
		return v, true
	}), nil
}
