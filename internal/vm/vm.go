// Package vm executes compiled lewi bytecode: a recursive-descent
// frame machine mirroring the pipeline's own shape (Source -> Lexer ->
// Parser -> AST -> Compiler -> Code -> VM). Each call pushes a new Go
// stack frame around a fresh callFrame, so Go's own call stack doubles
// as lewi's; maxCallDepth exists only to turn unbounded lewi recursion
// into a catchable error instead of a Go stack-overflow crash.
package vm

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/value"
)

// maxCallDepth bounds lewi call recursion; lewi has no tail-call
// elimination; a recursive algorithm that needs more than this many
// live frames needs rewriting as a loop, same as in most embedded
// scripting runtimes.
const maxCallDepth = 1024

// ModuleLoader resolves an ImportDll path to a live symbol resolver.
// internal/hostmodule implements this over purego; a VM constructed
// with a nil loader still runs any program that never imports a
// dynamic library.
type ModuleLoader interface {
	Load(path string) (value.SymbolResolver, error)
}

// VM executes one Code object's instructions. A VM is not safe for
// concurrent use, but a single instance can Run() the same Code (or
// successive Codes sharing the same global layout) more than once; its
// global-variable store grows as needed but is never reset, so state
// persists across calls to Run (see Run's doc comment).
type VM struct {
	constants []value.Value // Code.Globals: string/Function constants, indexed by PushGlobal/PushEmptyClass
	globals   []value.Value // top-level variable storage, indexed by LoadGlobal/StoreGlobal
	modules   ModuleLoader
	depth     int
	log       zerolog.Logger
}

// New builds a VM. loader may be nil if the program never imports a
// host library. Diagnostic logging is silent by default (zerolog.Nop);
// call SetLogger to observe module loads and runtime errors.
func New(loader ModuleLoader) *VM {
	return &VM{modules: loader, log: zerolog.Nop()}
}

// SetLogger installs l as this VM's diagnostic logger. Logging is
// diagnostic only: it never affects program semantics or print output.
func (vm *VM) SetLogger(l zerolog.Logger) { vm.log = l }

// Run executes code from its first instruction and returns the value
// its top-level frame produces at Halt (spec.md §4.4). Global-variable
// storage grows to fit code's declared slot count but is never
// truncated or cleared, so state set by SetGlobal (internal/stdlib's
// reserved built-ins) or by a prior Run (a REPL's accumulated top-level
// variables) survives into this one, matching spec.md §7's "the VM can
// be reused for a subsequent run_code call."
func (vm *VM) Run(code *bytecode.Code) (value.Value, error) {
	vm.log.Debug().Int("globals", code.NumGlobalVars).Msg("run starting")
	vm.growGlobals(code.NumGlobalVars)
	vm.constants = code.Globals
	vm.depth = 0
	top := newCallFrame("", code.Instructions, 0)
	return vm.runFrame(top)
}

// SetGlobal seeds or overwrites global slot idx, growing storage first
// if needed. internal/stdlib calls this to install each reserved
// built-in at the slot index compiler.CompileWithReserved assigned it,
// before the first Run.
func (vm *VM) SetGlobal(idx int, v value.Value) {
	vm.growGlobals(idx + 1)
	vm.globals[idx] = v
}

func (vm *VM) growGlobals(n int) {
	if n <= len(vm.globals) {
		return
	}
	grown := make([]value.Value, n)
	copy(grown, vm.globals)
	for i := len(vm.globals); i < n; i++ {
		grown[i] = value.Null{}
	}
	vm.globals = grown
}

// runFrame is the fetch-decode-execute loop for one callFrame. It
// returns when the frame's Halt, Return, or ReturnExpr executes, or
// when an opcode raises an error; a deeper Call recurses into a nested
// runFrame rather than threading its own loop through this one.
func (vm *VM) runFrame(f *callFrame) (value.Value, error) {
	for {
		if f.ip < 0 || f.ip >= len(f.code) {
			return nil, runtimeErr(f.name, "instruction pointer %d out of bounds (frame has %d instructions)", f.ip, len(f.code))
		}
		ins := f.code[f.ip]

		switch ins.Op {
		case bytecode.Halt:
			if len(f.stack) == 0 {
				return value.Null{}, nil
			}
			return f.pop(), nil
		case bytecode.Return:
			return value.Null{}, nil
		case bytecode.ReturnExpr:
			return f.pop(), nil

		case bytecode.Pop:
			f.pop()
			f.ip++
		case bytecode.Dup:
			f.push(f.top())
			f.ip++
		case bytecode.Noop:
			f.ip++

		case bytecode.PushReal:
			f.push(value.NewNumber(math.Float64frombits(uint64(ins.Operand))))
			f.ip++
		case bytecode.PushNull:
			f.push(value.Null{})
			f.ip++
		case bytecode.PushBool:
			f.push(value.NewBoolean(ins.Operand != 0))
			f.ip++
		case bytecode.PushGlobal:
			c, err := vm.constant(f.name, ins.Operand)
			if err != nil {
				return nil, err
			}
			f.push(c)
			f.ip++
		case bytecode.LoadGlobal:
			g, err := vm.global(f.name, ins.Operand)
			if err != nil {
				return nil, err
			}
			f.push(g)
			f.ip++
		case bytecode.StoreGlobal:
			v := f.pop()
			if err := vm.setGlobal(f.name, ins.Operand, v); err != nil {
				return nil, err
			}
			f.push(v)
			f.ip++
		case bytecode.Load:
			v, err := f.local(ins.Operand)
			if err != nil {
				return nil, err
			}
			f.push(v)
			f.ip++
		case bytecode.Store:
			v := f.pop()
			if err := f.setLocal(ins.Operand, v); err != nil {
				return nil, err
			}
			f.push(v)
			f.ip++

		case bytecode.MakeArray:
			n := int(ins.Operand)
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = f.pop()
			}
			f.push(value.NewArray(elems))
			f.ip++
		case bytecode.PushEmptyClass:
			nameV, err := vm.constant(f.name, ins.Operand)
			if err != nil {
				return nil, err
			}
			name, ok := nameV.(*value.String)
			if !ok {
				return nil, runtimeErr(f.name, "PushEmptyClass constant %d is not a String", ins.Operand)
			}
			f.push(value.NewClass(name.Val))
			f.ip++
		case bytecode.MakeMember:
			target := f.pop()
			name, err := popString(f, "class member name")
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			val := f.pop()
			cls, ok := target.(*value.Class)
			if !ok {
				return nil, runtimeErr(f.name, "MakeMember target is %s, not a Class", target.Type())
			}
			cls.MakeMember(target, name, val)
			f.push(val)
			f.ip++

		case bytecode.Access:
			idx := f.pop()
			target := f.pop()
			ix, ok := target.(value.Indexable)
			if !ok {
				return nil, wrapErr(f.name, value.NewTypeError("index", target.Type(), idx.Type()))
			}
			res, err := ix.Index(idx)
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(res)
			f.ip++
		case bytecode.AccessAssign:
			target := f.pop()
			key := f.pop()
			val := f.pop()
			ia, ok := target.(value.IndexAssignable)
			if !ok {
				return nil, wrapErr(f.name, value.NewTypeError("index-assign", target.Type(), key.Type()))
			}
			if err := ia.SetIndex(key, val); err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(val)
			f.ip++
		case bytecode.AccessMember:
			name, err := popString(f, "member name")
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			target := f.pop()
			mr, ok := target.(value.MemberReadable)
			if !ok {
				return nil, wrapErr(f.name, &value.MemberError{Type: target.Type(), Name: name})
			}
			res, err := mr.Member(name)
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(res)
			f.ip++
		case bytecode.AccessMemberAssign:
			target := f.pop()
			name, err := popString(f, "member name")
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			val := f.pop()
			mw, ok := target.(value.MemberWritable)
			if !ok {
				return nil, wrapErr(f.name, &value.MemberError{Type: target.Type(), Name: name})
			}
			if err := mw.SetMember(name, val); err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(val)
			f.ip++

		case bytecode.Jump:
			f.ip += int(ins.Operand)
		case bytecode.JumpIfTrue:
			if f.pop().Truthy() {
				f.ip += int(ins.Operand)
			} else {
				f.ip++
			}
		case bytecode.JumpIfFalse:
			if !f.pop().Truthy() {
				f.ip += int(ins.Operand)
			} else {
				f.ip++
			}

		case bytecode.Call:
			argc := int(ins.Operand)
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			callee := f.pop()
			res, err := vm.call(f.name, callee, args)
			if err != nil {
				return nil, err
			}
			f.push(res)
			f.ip++

		case bytecode.GetIter:
			v := f.pop()
			iterable, ok := v.(value.Iterable)
			if !ok {
				return nil, wrapErr(f.name, value.NewUnaryTypeError("iterate", v.Type()))
			}
			it, err := iterable.Iterator()
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(it)
			f.ip++
		case bytecode.ForLoop:
			v := f.pop()
			it, ok := v.(*value.Iterator)
			if !ok {
				return nil, runtimeErr(f.name, "ForLoop operand is %s, not an iterator", v.Type())
			}
			elem, more := it.Next()
			if _, isNull := elem.(value.Null); !more || isNull {
				f.ip += int(ins.Operand)
			} else {
				f.push(elem)
				f.ip++
			}

		case bytecode.ImportDll:
			pathV := f.pop()
			path, ok := pathV.(*value.String)
			if !ok {
				return nil, wrapErr(f.name, value.NewUnaryTypeError("import", pathV.Type()))
			}
			if vm.modules == nil {
				return nil, runtimeErr(f.name, "cannot import %q: no host module loader configured", path.Val)
			}
			resolver, err := vm.modules.Load(path.Val)
			if err != nil {
				vm.log.Debug().Str("path", path.Val).Err(err).Msg("ImportDll failed")
				return nil, wrapErr(f.name, err)
			}
			vm.log.Debug().Str("path", path.Val).Msg("ImportDll loaded")
			f.push(value.NewModule(path.Val, resolver))
			f.ip++

		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div,
			bytecode.Eq, bytecode.NEq, bytecode.LT, bytecode.LET, bytecode.GT, bytecode.GET:
			rhs := f.pop()
			lhs := f.pop()
			opName, _ := bytecode.BinaryOperator(ins.Op)
			bo, ok := lhs.(value.BinaryOperable)
			if !ok {
				return nil, wrapErr(f.name, value.NewTypeError(opName, lhs.Type(), rhs.Type()))
			}
			res, err := bo.BinaryOp(opName, rhs)
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(res)
			f.ip++
		case bytecode.UnaryOp:
			v := f.pop()
			kind := bytecode.UnaryKind(ins.Operand)
			uo, ok := v.(value.UnaryOperable)
			if !ok {
				return nil, wrapErr(f.name, value.NewUnaryTypeError(kind.String(), v.Type()))
			}
			res, err := uo.UnaryOp(kind.String())
			if err != nil {
				return nil, wrapErr(f.name, err)
			}
			f.push(res)
			f.ip++

		default:
			return nil, runtimeErr(f.name, "unimplemented opcode %s", ins.Op)
		}
	}
}

func (vm *VM) constant(frame string, idx int64) (value.Value, error) {
	if idx < 0 || int(idx) >= len(vm.constants) {
		return nil, runtimeErr(frame, "constant index %d out of range (pool has %d entries)", idx, len(vm.constants))
	}
	return vm.constants[idx], nil
}

func (vm *VM) global(frame string, idx int64) (value.Value, error) {
	if idx < 0 || int(idx) >= len(vm.globals) {
		return nil, runtimeErr(frame, "global variable index %d out of range (%d declared)", idx, len(vm.globals))
	}
	return vm.globals[idx], nil
}

func (vm *VM) setGlobal(frame string, idx int64, v value.Value) error {
	if idx < 0 || int(idx) >= len(vm.globals) {
		return runtimeErr(frame, "global variable index %d out of range (%d declared)", idx, len(vm.globals))
	}
	vm.globals[idx] = v
	return nil
}

func (f *callFrame) local(idx int64) (value.Value, error) {
	if idx < 0 || int(idx) >= len(f.locals) {
		return nil, runtimeErr(f.name, "local variable index %d out of range (%d slots)", idx, len(f.locals))
	}
	return f.locals[idx], nil
}

func (f *callFrame) setLocal(idx int64, v value.Value) error {
	if idx < 0 || int(idx) >= len(f.locals) {
		return runtimeErr(f.name, "local variable index %d out of range (%d slots)", idx, len(f.locals))
	}
	f.locals[idx] = v
	return nil
}

// popString pops the stack top and requires it to be a String, the
// shape every member-name operand takes (compiled from a source
// identifier via internal/compiler's pushStringConst).
func popString(f *callFrame, what string) (string, error) {
	v := f.pop()
	s, ok := v.(*value.String)
	if !ok {
		return "", fmt.Errorf("expected a String for %s, got %s", what, v.Type())
	}
	return s.Val, nil
}

// call dispatches a Call instruction's popped callee. NativeInvoker
// values (NativeMethod, ImportedFunction) run directly in Go; Function
// and MemberFunction carry a CompiledProc the VM recognizes as a
// *bytecode.Frame and executes by recursing into runFrame.
func (vm *VM) call(frame string, callee value.Value, args []value.Value) (value.Value, error) {
	switch c := callee.(type) {
	case value.NativeInvoker:
		if ar := c.CallArity(); ar >= 0 && ar != len(args) {
			return nil, wrapErr(frame, &ArityError{Callee: c.String(), Want: ar, Got: len(args)})
		}
		res, err := c.Invoke(args)
		if err != nil {
			return nil, wrapErr(frame, err)
		}
		return res, nil
	case *value.Function:
		return vm.callCompiled(frame, c.Proc, c.CallArity(), nil, args)
	case *value.MemberFunction:
		return vm.callCompiled(frame, c.Proc, c.CallArity(), c.BoundReceiver(), args)
	default:
		if callee == nil {
			return nil, runtimeErr(frame, "call to a nil value")
		}
		return nil, runtimeErr(frame, "value of type %s is not callable", callee.Type())
	}
}

// callCompiled pushes a fresh callFrame for proc and recurses into
// runFrame. receiver, when non-nil, is bound as the callee's implicit
// "self" at local slot 0 (spec.md §4.4's member-function binding), with
// the caller-supplied args shifted up by one slot to make room for it.
func (vm *VM) callCompiled(frame string, proc value.CompiledProc, arity int, receiver value.Value, args []value.Value) (value.Value, error) {
	compiled, ok := proc.(*bytecode.Frame)
	if !ok {
		return nil, runtimeErr(frame, "%q has no executable code", proc.Name())
	}
	effectiveArgc := len(args)
	if receiver != nil {
		effectiveArgc++
	}
	if arity >= 0 && arity != effectiveArgc {
		return nil, wrapErr(frame, &ArityError{Callee: proc.Name(), Want: arity, Got: effectiveArgc})
	}
	if vm.depth >= maxCallDepth {
		return nil, wrapErr(frame, &StackOverflowError{})
	}

	nf := newCallFrame(compiled.FrameName, compiled.Code, compiled.NumLocals)
	base := 0
	if receiver != nil {
		nf.locals[0] = receiver
		base = 1
	}
	for i, a := range args {
		if base+i >= len(nf.locals) {
			break
		}
		nf.locals[base+i] = a
	}

	vm.depth++
	res, err := vm.runFrame(nf)
	vm.depth--
	return res, err
}
