// This file implements .lewic, lewi's binary bytecode interchange
// format: a pre-compiled Code object serialized so a host can skip
// lexing/parsing/compiling on a subsequent run. It is a load/store
// format, distinct from the diagnostic-only textual disassembly in
// disasm.go (spec.md §6).
//
// Binary layout:
//
//	Header:       magic 0x4C455742 (uint32 LE, so the bytes on disk read "BWEL"), version (uint32 LE)
//	Globals:      count (uint32 LE), then that many tagged constants
//	NumGlobalVars: uint32 LE
//	Instructions: count (uint32 LE), then that many (opcode byte, operand int64 LE) pairs
//
// Tagged constant encoding:
//
//	0x01 Number   float64 LE bits
//	0x02 String   uint32 LE length + UTF-8 bytes
//	0x03 Frame    name (0x02-shaped string), numParams uint32, numLocals uint32,
//	              then a nested Instructions section (as above)
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/kristofer/lewi/internal/value"
)

const (
	magic          uint32 = 0x4C455742 // "LEWB"
	formatVersion  uint32 = 1
	tagNumber      byte   = 0x01
	tagString      byte   = 0x02
	tagFrame       byte   = 0x03
)

// Encode writes c to w in the .lewic format.
func Encode(c *Code, w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return fmt.Errorf("lewic: write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return fmt.Errorf("lewic: write version: %w", err)
	}
	if err := writeGlobals(w, c.Globals); err != nil {
		return fmt.Errorf("lewic: write globals: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(c.NumGlobalVars)); err != nil {
		return fmt.Errorf("lewic: write global-var count: %w", err)
	}
	if err := writeInstructions(w, c.Instructions); err != nil {
		return fmt.Errorf("lewic: write instructions: %w", err)
	}
	return nil
}

// Decode reads a Code object previously written by Encode.
func Decode(r io.Reader) (*Code, error) {
	var gotMagic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("lewic: read magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("lewic: bad magic 0x%08X (expected 0x%08X)", gotMagic, magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("lewic: read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("lewic: unsupported version %d (expected %d)", version, formatVersion)
	}

	globals, err := readGlobals(r)
	if err != nil {
		return nil, fmt.Errorf("lewic: read globals: %w", err)
	}

	var numGlobalVars uint32
	if err := binary.Read(r, binary.LittleEndian, &numGlobalVars); err != nil {
		return nil, fmt.Errorf("lewic: read global-var count: %w", err)
	}

	instrs, err := readInstructions(r)
	if err != nil {
		return nil, fmt.Errorf("lewic: read instructions: %w", err)
	}

	return &Code{Globals: globals, NumGlobalVars: int(numGlobalVars), Instructions: instrs}, nil
}

func writeInstructions(w io.Writer, instrs []Instruction) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(instrs))); err != nil {
		return err
	}
	for _, ins := range instrs {
		if err := binary.Write(w, binary.LittleEndian, byte(ins.Op)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ins.Operand); err != nil {
			return err
		}
	}
	return nil
}

func readInstructions(r io.Reader) ([]Instruction, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	instrs := make([]Instruction, count)
	for i := range instrs {
		var op byte
		var operand int64
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &operand); err != nil {
			return nil, err
		}
		instrs[i] = Instruction{Op: Opcode(op), Operand: operand}
	}
	return instrs, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeGlobals(w io.Writer, globals []value.Value) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(globals))); err != nil {
		return err
	}
	for _, g := range globals {
		if err := writeConstant(w, g); err != nil {
			return err
		}
	}
	return nil
}

func writeConstant(w io.Writer, v value.Value) error {
	switch t := v.(type) {
	case *value.Number:
		if _, err := w.Write([]byte{tagNumber}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, math.Float64bits(t.Val))
	case *value.String:
		if _, err := w.Write([]byte{tagString}); err != nil {
			return err
		}
		return writeString(w, t.Val)
	case *value.Function:
		frame, ok := t.Proc.(*Frame)
		if !ok {
			return fmt.Errorf("lewic: cannot serialize a function whose proc is not a *bytecode.Frame")
		}
		if _, err := w.Write([]byte{tagFrame}); err != nil {
			return err
		}
		if err := writeString(w, frame.FrameName); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(frame.NumParams)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(frame.NumLocals)); err != nil {
			return err
		}
		return writeInstructions(w, frame.Code)
	default:
		return fmt.Errorf("lewic: unsupported global constant type %T", v)
	}
}

func readGlobals(r io.Reader) ([]value.Value, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	globals := make([]value.Value, count)
	for i := range globals {
		g, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		globals[i] = g
	}
	return globals, nil
}

func readConstant(r io.Reader) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}
	switch tag[0] {
	case tagNumber:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		return value.NewNumber(math.Float64frombits(bits)), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.NewString(s), nil
	case tagFrame:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var numParams, numLocals uint32
		if err := binary.Read(r, binary.LittleEndian, &numParams); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &numLocals); err != nil {
			return nil, err
		}
		code, err := readInstructions(r)
		if err != nil {
			return nil, err
		}
		frame := &Frame{FrameName: name, NumParams: int(numParams), NumLocals: int(numLocals), Code: code}
		return value.NewFunction(frame), nil
	default:
		return nil, fmt.Errorf("lewic: unknown constant tag 0x%02X", tag[0])
	}
}
