// Package bytecode defines lewi's instruction set and compiled-unit
// shapes: the flat operand-tagged Instruction, the per-function Frame,
// and the top-level Code object a Compiler produces and a VM executes.
//
// The instruction set is stack-oriented: every opcode either pushes,
// pops, or rewrites the top of an implicit operand stack the VM
// maintains per call frame. There is no register file — operands always
// come from the stack or from an explicit local/global slot index
// carried in the instruction itself.
package bytecode

// Opcode identifies a single bytecode operation. Opcodes are grouped
// below by the concern they serve, mirroring the grouping the compiler
// and VM switch over them in.
type Opcode byte

const (
	// --- Stack ---

	// Pop discards the top of the operand stack.
	Pop Opcode = iota
	// Dup duplicates the top of the operand stack.
	Dup
	// Noop does nothing; reserved for patch sites that turn out unneeded.
	Noop
	// Halt stops execution of the current frame immediately.
	Halt

	// --- Constants & globals ---

	// PushReal pushes a Number built from the instruction's operand,
	// reinterpreted as the raw bits of a float64.
	PushReal
	// PushNull pushes the Null singleton.
	PushNull
	// PushBool pushes a Boolean built from the instruction's operand (0
	// or 1). Unlike Number, Boolean is its own runtime type (spec.md
	// §4.1), so literal "true"/"false" cannot reuse PushReal.
	PushBool
	// PushGlobal pushes Code.Globals[operand] — a literal String or a
	// CompiledFunction built from a Frame.
	PushGlobal
	// LoadGlobal pushes the VM's top-level variable storage at operand.
	LoadGlobal
	// StoreGlobal pops the top of stack into the VM's top-level variable
	// storage at operand, then pushes it back (assignment is an expression).
	StoreGlobal
	// Load pushes the current frame's local slot at operand.
	Load
	// Store pops the top of stack into the current frame's local slot at
	// operand, then pushes it back.
	Store

	// --- Composite values ---

	// MakeArray pops operand values (topmost becomes the array's last
	// element) and pushes the resulting Array.
	MakeArray
	// PushEmptyClass pushes a freshly constructed, member-less Class whose
	// name is Code.Globals[operand] (always a String constant).
	PushEmptyClass
	// MakeMember pops a target, a member-name String, then a value, and
	// declares the binding on the target (wrapping a function value as a
	// receiver-bound MemberFunction), pushing the value back. Emitted only
	// for class-body member declarations, where redeclaring an existing
	// name is allowed.
	MakeMember

	// --- Indexing & member access ---

	// Access pops an index then a target and pushes target[index].
	Access
	// AccessAssign pops a target, an index, then a value; performs
	// target[index] = value and pushes value.
	AccessAssign
	// AccessMember pops a member-name String then a target and pushes
	// target.name.
	AccessMember
	// AccessMemberAssign pops a target, a member-name String, then a
	// value; performs target.name = value and pushes value. Unlike
	// MakeMember, this does not declare new class members: assigning to
	// an undeclared name on a Class is a runtime error.
	AccessMemberAssign

	// --- Control flow ---

	// Jump adds its signed operand to pc unconditionally.
	Jump
	// JumpIfTrue pops a value; if truthy, adds the signed operand to pc,
	// otherwise advances one slot.
	JumpIfTrue
	// JumpIfFalse pops a value; if falsy, adds the signed operand to pc,
	// otherwise advances one slot.
	JumpIfFalse

	// --- Calls ---

	// Call pops operand arguments (topmost becomes the last positional
	// argument), then the callable beneath them, and pushes the call's
	// result.
	Call
	// Return unwinds the current frame, clearing its operand stack and
	// pushing Null to the caller.
	Return
	// ReturnExpr unwinds the current frame, preserving its top of stack
	// as the result pushed to the caller.
	ReturnExpr

	// --- Iteration ---

	// GetIter replaces the top of stack with its iterator.
	GetIter
	// ForLoop pops an iterator and calls next on it. On a produced value
	// it pushes the value and falls through; on exhaustion, or when next
	// produces Null, it pushes nothing and adds the signed operand to pc. The compiler reloads the
	// iterator from a hidden local before every ForLoop, so a loop body is
	// never required to preserve a stack position across iterations.
	ForLoop

	// --- Modules ---

	// ImportDll pops a String path, loads it as a host-native dynamic
	// library, and pushes the resulting Module.
	ImportDll

	// --- Arithmetic & relational ---

	Add
	Sub
	Mul
	Div
	Eq
	NEq
	LT
	LET
	GT
	GET
	// UnaryOp applies the unary operator encoded in the operand
	// (see UnaryKind) to the popped top of stack.
	UnaryOp
)

// UnaryKind encodes which unary operator a UnaryOp instruction's
// operand selects.
type UnaryKind int64

const (
	UnaryPlus UnaryKind = iota
	UnaryMinus
	UnaryNot
)

func (k UnaryKind) String() string {
	switch k {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	case UnaryNot:
		return "!"
	default:
		return "?"
	}
}

// String renders a human-readable mnemonic for op, used by the
// disassembler and by error messages that name an opcode.
func (op Opcode) String() string {
	switch op {
	case Pop:
		return "Pop"
	case Dup:
		return "Dup"
	case Noop:
		return "Noop"
	case Halt:
		return "Halt"
	case PushReal:
		return "PushReal"
	case PushNull:
		return "PushNull"
	case PushBool:
		return "PushBool"
	case PushGlobal:
		return "PushGlobal"
	case LoadGlobal:
		return "LoadGlobal"
	case StoreGlobal:
		return "StoreGlobal"
	case Load:
		return "Load"
	case Store:
		return "Store"
	case MakeArray:
		return "MakeArray"
	case PushEmptyClass:
		return "PushEmptyClass"
	case MakeMember:
		return "MakeMember"
	case Access:
		return "Access"
	case AccessAssign:
		return "AccessAssign"
	case AccessMember:
		return "AccessMember"
	case AccessMemberAssign:
		return "AccessMemberAssign"
	case Jump:
		return "Jump"
	case JumpIfTrue:
		return "JumpIfTrue"
	case JumpIfFalse:
		return "JumpIfFalse"
	case Call:
		return "Call"
	case Return:
		return "Return"
	case ReturnExpr:
		return "ReturnExpr"
	case GetIter:
		return "GetIter"
	case ForLoop:
		return "ForLoop"
	case ImportDll:
		return "ImportDll"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Eq:
		return "Eq"
	case NEq:
		return "NEq"
	case LT:
		return "LT"
	case LET:
		return "LET"
	case GT:
		return "GT"
	case GET:
		return "GET"
	case UnaryOp:
		return "UnaryOp"
	default:
		return "UNKNOWN"
	}
}

// OpcodeForOperator maps a binary operator's source spelling to the
// opcode the compiler emits for it.
func OpcodeForOperator(op string) (Opcode, bool) {
	switch op {
	case "+":
		return Add, true
	case "-":
		return Sub, true
	case "*":
		return Mul, true
	case "/":
		return Div, true
	case "==":
		return Eq, true
	case "!=":
		return NEq, true
	case "<":
		return LT, true
	case "<=":
		return LET, true
	case ">":
		return GT, true
	case ">=":
		return GET, true
	default:
		return 0, false
	}
}

// UnaryKindForOperator maps a unary operator's source spelling to its
// UnaryKind encoding.
func UnaryKindForOperator(op string) (UnaryKind, bool) {
	switch op {
	case "+":
		return UnaryPlus, true
	case "-":
		return UnaryMinus, true
	case "!":
		return UnaryNot, true
	default:
		return 0, false
	}
}

// BinaryOperator maps an arithmetic/relational opcode to the operator
// string value.BinaryOperable implementations switch on.
func BinaryOperator(op Opcode) (string, bool) {
	switch op {
	case Add:
		return "+", true
	case Sub:
		return "-", true
	case Mul:
		return "*", true
	case Div:
		return "/", true
	case Eq:
		return "==", true
	case NEq:
		return "!=", true
	case LT:
		return "<", true
	case LET:
		return "<=", true
	case GT:
		return ">", true
	case GET:
		return ">=", true
	default:
		return "", false
	}
}
