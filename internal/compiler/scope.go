package compiler

import (
	"github.com/kristofer/lewi/internal/ast"
	"github.com/kristofer/lewi/internal/bytecode"
)

// loopCtx tracks the patch sites a break/continue inside one while/for
// body needs: continue jumps straight to continueTarget, break jumps are
// collected and patched once the loop's end slot is known.
type loopCtx struct {
	continueTarget int
	breakPatches   []int
}

// blockFrame is pushed for every compiled Block (including transparent
// if-arm bodies, whose Accepts is always 0) so break/continue/return
// validity can be checked against the nearest block that actually
// accepts the escape, skipping transparent frames in between.
type blockFrame struct {
	accepts ast.Escape
	loop    *loopCtx // non-nil only for while/for bodies
}

// scope is one function's (or the top-level program's) compiling
// context: its own instruction stream and, for depth > 0, its local
// variable table. Scopes never see an enclosing scope's locals — lewi
// has no closures (spec.md Non-goals) — so name resolution below depth 0
// falls straight back to the shared top-level global-name table.
type scope struct {
	depth        int
	instructions []bytecode.Instruction
	locals       map[string]int
	numLocals    int
	blocks       []blockFrame
}

func newScope(depth int) *scope {
	return &scope{depth: depth, locals: map[string]int{}}
}

func (s *scope) pushBlock(f blockFrame) { s.blocks = append(s.blocks, f) }
func (s *scope) popBlock()              { s.blocks = s.blocks[:len(s.blocks)-1] }

// find walks outward from the innermost enclosing block looking for one
// whose accepted escape set contains e, skipping over any block that
// doesn't (transparent if-arm bodies, and — for e = EscapeReturn — loop
// bodies a break/continue belongs to but a return must pass through,
// and vice versa for e = EscapeBreak/EscapeContinue passing through a
// function body it cannot belong to). Reports the owning loopCtx (nil
// for a matched function body) and whether any match was found at all.
func (s *scope) find(e ast.Escape) (*loopCtx, bool) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if f := s.blocks[i]; f.accepts.Accepts(e) {
			return f.loop, true
		}
	}
	return nil, false
}
