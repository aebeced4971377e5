// Package compiler lowers an AST (package ast) into bytecode (package
// bytecode): a single recursive walk, emitting one Frame per function
// literal and one flat Instruction stream for the top-level program.
//
// Name resolution follows a two-level model: depth 0 (top level) binds
// names into the VM's global-variable storage (LoadGlobal/StoreGlobal);
// depth > 0 (inside a function body) binds parameters and "var"
// declarations into that function's own local slots (Load/Store). A
// name unresolved in the current function's locals falls back to the
// top-level global-name table; lewi has no closures, so an identifier
// can never resolve to an enclosing function's locals (spec.md Non-
// goals). String and function-frame literals are interned once into
// Code.Globals and referenced by PushGlobal.
package compiler

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kristofer/lewi/internal/ast"
	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/value"
)

// log is this package's diagnostic channel, silent by default. Compile
// has no per-call state to hang a logger off (it builds a fresh
// Compiler internally and returns only the finished Code), so the
// logger is package-level rather than per-instance; SetLogger installs
// one for the process.
var log = zerolog.Nop()

// SetLogger installs l as the package's diagnostic logger. Logging is
// diagnostic only: it never affects compilation output.
func SetLogger(l zerolog.Logger) { log = l }

// Compiler walks a single Program, producing one bytecode.Code. A fresh
// inner Compiler is never created; instead, function bodies compile
// into a fresh scope pushed onto the same Compiler's scope stack, while
// globals and string interning stay shared across the whole program.
type Compiler struct {
	globals       []value.Value
	globalStrings map[string]int
	globalVars    map[string]int
	scopes        []*scope
	hiddenSeq     int
}

// New creates a Compiler ready to compile one Program.
func New() *Compiler {
	c := &Compiler{
		globalStrings: map[string]int{},
		globalVars:    map[string]int{},
	}
	c.scopes = []*scope{newScope(0)}
	return c
}

// Compile lowers prog into a top-level bytecode.Code.
func Compile(prog *ast.Program) (*bytecode.Code, error) {
	return CompileWithReserved(prog, nil)
}

// CompileWithReserved lowers prog the same way Compile does, but first
// binds each name in reserved to its own global slot, in order, before
// walking the program. This is how a host's reserved built-ins (spec.md
// §6: print, type, Iterator, String, Range) get stable slot indices the
// compiled program's references to them resolve against — the values
// themselves are supplied later, by whatever installs them into a VM's
// global storage ahead of Run (internal/stdlib.Install).
func CompileWithReserved(prog *ast.Program, reserved []string) (*bytecode.Code, error) {
	c := New()
	if err := c.DeclareReserved(reserved); err != nil {
		return nil, err
	}
	return c.CompileProgram(prog)
}

// DeclareReserved binds each name in names to its own global slot, in
// declaration order, without compiling anything yet. A REPL driver
// calls this once on a long-lived Compiler before the first input, then
// calls CompileProgram repeatedly — each subsequent call's "var"
// declarations and name lookups share the same globalVars table, so a
// name declared in one REPL input resolves correctly in the next one,
// the same persistent-symbol-table behavior the teacher's own REPL
// relies on its compiler for.
func (c *Compiler) DeclareReserved(names []string) error {
	for _, name := range names {
		if _, _, err := c.declare(0, name); err != nil {
			return err
		}
	}
	return nil
}

// CompileProgram lowers prog against c's existing global/local state and
// returns only the instructions prog itself emitted. Calling it more
// than once on the same Compiler is how a REPL gets incremental
// compilation: each call's top-level "var" declarations and string/
// function constants accumulate in c (matching Run's own "globals
// persist across calls" behavior on the VM side), but the top scope's
// instruction buffer also keeps growing call over call — every prior
// call's Halt is still sitting in it. Returning the whole buffer would
// make the VM execute from instruction 0 every time and stop at the
// first Halt, re-running line one forever. So this snapshots the
// buffer's length before compiling and slices off only the new suffix;
// Jump/JumpIfTrue/JumpIfFalse operands are deltas (patch stores
// target-slot, vm.go applies them as f.ip += delta), so they stay valid
// under the slice's shifted base. Code.Globals is still the full,
// cumulative table, since PushGlobal indices into it are absolute and
// earlier lines' interned strings/frames must stay resolvable.
func (c *Compiler) CompileProgram(prog *ast.Program) (*bytecode.Code, error) {
	start := len(c.top().instructions)
	if err := c.compileProgram(prog); err != nil {
		log.Debug().Err(err).Msg("compile failed")
		return nil, err
	}
	code := &bytecode.Code{
		Globals:       c.globals,
		Instructions:  c.top().instructions[start:],
		NumGlobalVars: len(c.globalVars),
	}
	log.Debug().Int("globals", code.NumGlobalVars).Int("instructions", len(code.Instructions)).Msg("compiled")
	return code, nil
}

func (c *Compiler) top() *scope { return c.scopes[len(c.scopes)-1] }

func (c *Compiler) compileProgram(prog *ast.Program) error {
	if err := c.compileStatements(prog.Statements, true); err != nil {
		return err
	}
	c.emit(bytecode.Halt, 0)
	return nil
}

// --- emission helpers ---

func (c *Compiler) emit(op bytecode.Opcode, operand int64) int {
	s := c.top()
	s.instructions = append(s.instructions, bytecode.Instruction{Op: op, Operand: operand})
	return len(s.instructions) - 1
}

func (c *Compiler) here() int { return len(c.top().instructions) }

// patch rewrites the operand at slot to be a delta landing on target.
func (c *Compiler) patch(slot, target int) {
	c.top().instructions[slot].Operand = int64(target - slot)
}

func (c *Compiler) internString(s string) int {
	if idx, ok := c.globalStrings[s]; ok {
		return idx
	}
	idx := len(c.globals)
	c.globals = append(c.globals, value.NewString(s))
	c.globalStrings[s] = idx
	return idx
}

func (c *Compiler) pushStringConst(s string) {
	c.emit(bytecode.PushGlobal, int64(c.internString(s)))
}

// declare binds name to a fresh slot in the current scope: the shared
// global-variable table at depth 0, or this function's local table at
// depth > 0. Redeclaring an existing top-level name reuses its slot;
// redeclaring an existing local name is a compile error.
func (c *Compiler) declare(line int, name string) (idx int, isGlobal bool, err error) {
	s := c.top()
	if s.depth == 0 {
		if idx, ok := c.globalVars[name]; ok {
			return idx, true, nil
		}
		idx := len(c.globalVars)
		c.globalVars[name] = idx
		return idx, true, nil
	}
	if _, ok := s.locals[name]; ok {
		return 0, false, newCompileError(line, "redeclared local %q", name)
	}
	idx = s.numLocals
	s.numLocals++
	s.locals[name] = idx
	return idx, false, nil
}

func (c *Compiler) declareHidden() (idx int, isGlobal bool) {
	c.hiddenSeq++
	name := fmt.Sprintf("$hidden%d", c.hiddenSeq)
	idx, isGlobal, err := c.declare(0, name)
	if err != nil {
		// Hidden names are unique by construction; a collision here is
		// a bug in this function, not a user-reachable condition.
		panic(err)
	}
	return idx, isGlobal
}

// resolve looks up an already-declared name for a read or a write.
func (c *Compiler) resolve(name string) (idx int, isGlobal, ok bool) {
	s := c.top()
	if s.depth > 0 {
		if idx, ok := s.locals[name]; ok {
			return idx, false, true
		}
	}
	if idx, ok := c.globalVars[name]; ok {
		return idx, true, true
	}
	return 0, false, false
}

func (c *Compiler) emitLoad(idx int, isGlobal bool) {
	if isGlobal {
		c.emit(bytecode.LoadGlobal, int64(idx))
	} else {
		c.emit(bytecode.Load, int64(idx))
	}
}

func (c *Compiler) emitStore(idx int, isGlobal bool) {
	if isGlobal {
		c.emit(bytecode.StoreGlobal, int64(idx))
	} else {
		c.emit(bytecode.Store, int64(idx))
	}
}

// --- statements ---

// isValueProducing reports whether stmt leaves exactly one value on the
// stack as its normal (non-escaping) outcome: this is the set of
// statements eligible to supply a block's final value when compiled in
// tail position.
func isValueProducing(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.ExprStmt, *ast.VarDecl, *ast.Import, *ast.ClassDecl:
		return true
	default:
		return false
	}
}

// compileStatements compiles a flat statement list. When tail is true,
// the final statement's value (if it produces one) is left on the stack
// rather than popped — this is how a Program's result and a function
// body's implicit return value are threaded out. If the list is empty,
// or its last statement does not produce a value, a tail context gets an
// explicit PushNull so the caller always finds exactly one result value.
func (c *Compiler) compileStatements(stmts []ast.Statement, tail bool) error {
	if len(stmts) == 0 {
		if tail {
			c.emit(bytecode.PushNull, 0)
		}
		return nil
	}
	for i, stmt := range stmts {
		keep := tail && i == len(stmts)-1 && isValueProducing(stmt)
		if err := c.compileStatement(stmt, keep); err != nil {
			return err
		}
	}
	if tail && !isValueProducing(stmts[len(stmts)-1]) {
		c.emit(bytecode.PushNull, 0)
	}
	return nil
}

func (c *Compiler) compileStatement(stmt ast.Statement, keep bool) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if fn, ok := s.Expr.(*ast.FnDecl); ok && fn.Name != "" {
			return c.compileNamedFnDecl(fn, keep)
		}
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		if !keep {
			c.emit(bytecode.Pop, 0)
		}
		return nil
	case *ast.VarDecl:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		idx, isGlobal, err := c.declare(s.LineNo, s.Name)
		if err != nil {
			return err
		}
		c.emitStore(idx, isGlobal)
		if !keep {
			c.emit(bytecode.Pop, 0)
		}
		return nil
	case *ast.Import:
		c.pushStringConst(s.Path)
		c.emit(bytecode.ImportDll, 0)
		name := s.As
		if name == "" {
			name = s.Path
		}
		idx, isGlobal, err := c.declare(s.LineNo, name)
		if err != nil {
			return err
		}
		c.emitStore(idx, isGlobal)
		if !keep {
			c.emit(bytecode.Pop, 0)
		}
		return nil
	case *ast.ClassDecl:
		return c.compileClassDecl(s, keep)
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.For:
		return c.compileFor(s)
	case *ast.Break:
		loop, ok := c.top().find(ast.EscapeBreak)
		if !ok {
			return newCompileError(s.LineNo, "break used outside a loop")
		}
		slot := c.emit(bytecode.Jump, 0)
		loop.breakPatches = append(loop.breakPatches, slot)
		return nil
	case *ast.Continue:
		loop, ok := c.top().find(ast.EscapeContinue)
		if !ok {
			return newCompileError(s.LineNo, "continue used outside a loop")
		}
		slot := c.emit(bytecode.Jump, 0)
		c.patch(slot, loop.continueTarget)
		return nil
	case *ast.Return:
		if _, ok := c.top().find(ast.EscapeReturn); !ok {
			return newCompileError(s.LineNo, "return used outside a function")
		}
		if s.Value == nil {
			c.emit(bytecode.Return, 0)
			return nil
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.ReturnExpr, 0)
		return nil
	default:
		return newCompileError(stmt.Line(), "unsupported statement %T", stmt)
	}
}

func (c *Compiler) compileNamedFnDecl(fn *ast.FnDecl, keep bool) error {
	// Reserve the name's slot before compiling the body so a recursive
	// call inside the body resolves (top-level only: see resolve's
	// depth > 0 fallback rule).
	idx, isGlobal, err := c.declare(fn.LineNo, fn.Name)
	if err != nil {
		return err
	}
	if err := c.compileFnLiteral(fn); err != nil {
		return err
	}
	c.emitStore(idx, isGlobal)
	if !keep {
		c.emit(bytecode.Pop, 0)
	}
	return nil
}

// compileClassDecl builds a Class value member by member, threading the
// in-progress class through a hidden slot (rather than the operand
// stack, where the class reference would otherwise have to sit beneath
// an unbounded number of per-member value/name pushes).
func (c *Compiler) compileClassDecl(s *ast.ClassDecl, keep bool) error {
	c.emit(bytecode.PushEmptyClass, int64(c.internString(s.Name)))
	hIdx, hGlobal := c.declareHidden()
	c.emitStore(hIdx, hGlobal)
	c.emit(bytecode.Pop, 0)

	for _, m := range s.Members {
		if err := c.compileExpr(m.Value); err != nil {
			return err
		}
		c.pushStringConst(m.Name)
		c.emitLoad(hIdx, hGlobal)
		c.emit(bytecode.MakeMember, 0)
		c.emit(bytecode.Pop, 0)
	}

	c.emitLoad(hIdx, hGlobal)
	idx, isGlobal, err := c.declare(s.LineNo, s.Name)
	if err != nil {
		return err
	}
	c.emitStore(idx, isGlobal)
	if !keep {
		c.emit(bytecode.Pop, 0)
	}
	return nil
}

func (c *Compiler) compileIf(s *ast.If) error {
	var endJumps []int
	for i, arm := range s.Arms {
		isLast := i == len(s.Arms)-1
		if arm.Cond != nil {
			if err := c.compileExpr(arm.Cond); err != nil {
				return err
			}
			falseJump := c.emit(bytecode.JumpIfFalse, 0)
			if err := c.compileNestedBlock(arm.Body); err != nil {
				return err
			}
			if !isLast {
				endJumps = append(endJumps, c.emit(bytecode.Jump, 0))
			}
			c.patch(falseJump, c.here())
		} else {
			if err := c.compileNestedBlock(arm.Body); err != nil {
				return err
			}
		}
	}
	end := c.here()
	for _, slot := range endJumps {
		c.patch(slot, end)
	}
	return nil
}

func (c *Compiler) compileWhile(s *ast.While) error {
	loop := &loopCtx{}
	condStart := c.here()
	loop.continueTarget = condStart
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	exitJump := c.emit(bytecode.JumpIfFalse, 0)

	c.top().pushBlock(blockFrame{accepts: s.Body.Accepts, loop: loop})
	err := c.compileStatements(s.Body.Statements, false)
	c.top().popBlock()
	if err != nil {
		return err
	}

	c.emit(bytecode.Jump, 0)
	c.patch(c.here()-1, condStart)
	end := c.here()
	c.patch(exitJump, end)
	for _, slot := range loop.breakPatches {
		c.patch(slot, end)
	}
	return nil
}

func (c *Compiler) compileFor(s *ast.For) error {
	if err := c.compileExpr(s.Iterable); err != nil {
		return err
	}
	c.emit(bytecode.GetIter, 0)
	iterIdx, iterGlobal := c.declareHidden()
	c.emitStore(iterIdx, iterGlobal)
	c.emit(bytecode.Pop, 0)

	loop := &loopCtx{}
	reload := c.here()
	loop.continueTarget = reload
	c.emitLoad(iterIdx, iterGlobal)
	forSlot := c.emit(bytecode.ForLoop, 0)

	varIdx, varGlobal, err := c.declare(s.LineNo, s.Var)
	if err != nil {
		return err
	}
	c.emitStore(varIdx, varGlobal)
	c.emit(bytecode.Pop, 0)

	c.top().pushBlock(blockFrame{accepts: s.Body.Accepts, loop: loop})
	err = c.compileStatements(s.Body.Statements, false)
	c.top().popBlock()
	if err != nil {
		return err
	}

	c.emit(bytecode.Jump, 0)
	c.patch(c.here()-1, reload)
	end := c.here()
	c.patch(forSlot, end)
	for _, slot := range loop.breakPatches {
		c.patch(slot, end)
	}
	return nil
}

// compileNestedBlock compiles an if-arm body: a transparent block (its
// own Accepts is always 0) that does not itself catch break/continue/
// return, but must still be pushed so scope.find can walk past it to
// whatever loop or function actually encloses it.
func (c *Compiler) compileNestedBlock(b *ast.Block) error {
	c.top().pushBlock(blockFrame{accepts: b.Accepts})
	err := c.compileStatements(b.Statements, false)
	c.top().popBlock()
	return err
}

// --- expressions ---

func (c *Compiler) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Number:
		c.emit(bytecode.PushReal, int64(math.Float64bits(e.Value)))
		return nil
	case *ast.String:
		c.pushStringConst(e.Value)
		return nil
	case *ast.Bool:
		var bit int64
		if e.Value {
			bit = 1
		}
		c.emit(bytecode.PushBool, bit)
		return nil
	case *ast.Null:
		c.emit(bytecode.PushNull, 0)
		return nil
	case *ast.Identifier:
		idx, isGlobal, ok := c.resolve(e.Name)
		if !ok {
			return newCompileError(e.LineNo, "unresolved identifier %q", e.Name)
		}
		c.emitLoad(idx, isGlobal)
		return nil
	case *ast.Unary:
		if err := c.compileExpr(e.Operand); err != nil {
			return err
		}
		kind, ok := bytecode.UnaryKindForOperator(e.Operator)
		if !ok {
			return newCompileError(e.LineNo, "unsupported unary operator %q", e.Operator)
		}
		c.emit(bytecode.UnaryOp, int64(kind))
		return nil
	case *ast.Binary:
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		op, ok := bytecode.OpcodeForOperator(e.Operator)
		if !ok {
			return newCompileError(e.LineNo, "unsupported binary operator %q", e.Operator)
		}
		c.emit(op, 0)
		return nil
	case *ast.Index:
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		if err := c.compileExpr(e.Key); err != nil {
			return err
		}
		c.emit(bytecode.Access, 0)
		return nil
	case *ast.Member:
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		c.pushStringConst(e.Name)
		c.emit(bytecode.AccessMember, 0)
		return nil
	case *ast.Array:
		for _, el := range e.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.emit(bytecode.MakeArray, int64(len(e.Elements)))
		return nil
	case *ast.Call:
		if err := c.compileExpr(e.Callee); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emit(bytecode.Call, int64(len(e.Args)))
		return nil
	case *ast.FnDecl:
		return c.compileFnLiteral(e)
	case *ast.Assign:
		return c.compileAssign(e)
	default:
		return newCompileError(expr.Line(), "unsupported expression %T", expr)
	}
}

func (c *Compiler) compileAssign(e *ast.Assign) error {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		idx, isGlobal, ok := c.resolve(target.Name)
		if !ok {
			return newCompileError(target.LineNo, "unresolved identifier %q", target.Name)
		}
		c.emitStore(idx, isGlobal)
		return nil
	case *ast.Index:
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		if err := c.compileExpr(target.Key); err != nil {
			return err
		}
		if err := c.compileExpr(target.Target); err != nil {
			return err
		}
		c.emit(bytecode.AccessAssign, 0)
		return nil
	case *ast.Member:
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		c.pushStringConst(target.Name)
		if err := c.compileExpr(target.Target); err != nil {
			return err
		}
		c.emit(bytecode.AccessMemberAssign, 0)
		return nil
	default:
		return newCompileError(e.LineNo, "invalid assignment target %T", e.Target)
	}
}

// compileFnLiteral compiles fn's body into a fresh scope pushed onto the
// same Compiler's scope stack, wraps the resulting Frame in a
// value.Function, interns it into Code.Globals, and emits PushGlobal for
// its index — the expression-level result of every function literal,
// named or anonymous.
func (c *Compiler) compileFnLiteral(fn *ast.FnDecl) error {
	inner := newScope(c.top().depth + 1)
	for _, p := range fn.Params {
		if _, ok := inner.locals[p]; ok {
			return newCompileError(fn.LineNo, "redeclared parameter %q", p)
		}
		idx := inner.numLocals
		inner.numLocals++
		inner.locals[p] = idx
	}
	c.scopes = append(c.scopes, inner)
	inner.pushBlock(blockFrame{accepts: fn.Body.Accepts})
	err := c.compileStatements(fn.Body.Statements, true)
	inner.popBlock()
	c.scopes = c.scopes[:len(c.scopes)-1]
	if err != nil {
		return err
	}

	frame := &bytecode.Frame{
		FrameName: fn.Name,
		NumParams: len(fn.Params),
		NumLocals: inner.numLocals,
		Code:      inner.instructions,
	}
	idx := len(c.globals)
	c.globals = append(c.globals, value.NewFunction(frame))
	c.emit(bytecode.PushGlobal, int64(idx))
	return nil
}
