package script

import (
	"encoding/binary"
	"fmt"
	"strings"
)

type Opcode byte

const (
	OpNil Opcode = iota
	OpTrue
	OpFalse
	OpSmallInt // 1B signed immediate
	OpConstant // 2B constant index
	OpPop

	OpCreateLocal  // push of a new local from top of stack
	OpRemoveLocals // 1B count
	OpLoadLocal    // 1B slot
	OpStoreLocal   // 1B slot

	OpNot
	OpNegate
	OpDeref

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulus

	OpEqual
	OpNotEqual
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq

	OpJump      // 2B signed offset
	OpJumpIf    // 2B signed offset, pops condition
	OpJumpIfNot // 2B signed offset, pops condition

	OpLoadSymbol    // 2B constant index (symbol)
	OpLoadMember    // 2B constant index (symbol); pops object
	OpStoreMember   // 2B constant index (symbol); pops value, object; pushes value
	OpLoadSubscript // pops index, object
	OpStoreSubscript

	OpBeginList
	OpEndList

	OpIterate       // pops list, installs the frame iterator
	OpAdvanceOrJump // 2B signed offset; pushes next element or jumps

	OpMakePortal // 1B oneway flag; pops dest ref, direction, prototype
	OpClone
	OpSetCount

	OpCall // 1B argument count

	OpStringify   // 1B format byte
	OpJoinStrings // 1B count

	OpAwait
	OpReturn
	OpFallthrough
)

// operandWidth is the number of operand bytes following each opcode.
var operandWidth = [...]int{
	OpNil: 0, OpTrue: 0, OpFalse: 0, OpSmallInt: 1, OpConstant: 2, OpPop: 0,
	OpCreateLocal: 0, OpRemoveLocals: 1, OpLoadLocal: 1, OpStoreLocal: 1,
	OpNot: 0, OpNegate: 0, OpDeref: 0,
	OpAdd: 0, OpSubtract: 0, OpMultiply: 0, OpDivide: 0, OpModulus: 0,
	OpEqual: 0, OpNotEqual: 0, OpLess: 0, OpLessEq: 0, OpGreater: 0, OpGreaterEq: 0,
	OpJump: 2, OpJumpIf: 2, OpJumpIfNot: 2,
	OpLoadSymbol: 2, OpLoadMember: 2, OpStoreMember: 2,
	OpLoadSubscript: 0, OpStoreSubscript: 0,
	OpBeginList: 0, OpEndList: 0,
	OpIterate: 0, OpAdvanceOrJump: 2,
	OpMakePortal: 1, OpClone: 0, OpSetCount: 0,
	OpCall: 1,
	OpStringify: 1, OpJoinStrings: 1,
	OpAwait: 0, OpReturn: 0, OpFallthrough: 0,
}

var opcodeNames = [...]string{
	OpNil: "nil", OpTrue: "true", OpFalse: "false", OpSmallInt: "smallInt",
	OpConstant: "constant", OpPop: "pop",
	OpCreateLocal: "createLocal", OpRemoveLocals: "removeLocals",
	OpLoadLocal: "loadLocal", OpStoreLocal: "storeLocal",
	OpNot: "not", OpNegate: "negate", OpDeref: "deref",
	OpAdd: "add", OpSubtract: "subtract", OpMultiply: "multiply",
	OpDivide: "divide", OpModulus: "modulus",
	OpEqual: "equal", OpNotEqual: "notEqual", OpLess: "less",
	OpLessEq: "lessEq", OpGreater: "greater", OpGreaterEq: "greaterEq",
	OpJump: "jump", OpJumpIf: "jumpIf", OpJumpIfNot: "jumpIfNot",
	OpLoadSymbol: "loadSymbol", OpLoadMember: "loadMember", OpStoreMember: "storeMember",
	OpLoadSubscript: "loadSubscript", OpStoreSubscript: "storeSubscript",
	OpBeginList: "beginList", OpEndList: "endList",
	OpIterate: "iterate", OpAdvanceOrJump: "advanceOrJump",
	OpMakePortal: "makePortal", OpClone: "clone", OpSetCount: "setCount",
	OpCall: "call",
	OpStringify: "stringify", OpJoinStrings: "joinStrings",
	OpAwait: "await", OpReturn: "return", OpFallthrough: "fallthrough",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// Chunk is one compiled bytecode block with its constant pool. Lines runs
// parallel to Code for diagnostics.
type Chunk struct {
	Name      string
	Code      []byte
	Constants []Value
	Lines     []int32

	constIndex map[constKey]int
}

type constKey struct {
	kind Kind
	num  float64
	str  string
}

func NewChunk(name string) *Chunk {
	return &Chunk{Name: name, constIndex: make(map[constKey]int)}
}

func (c *Chunk) emit(line int, op Opcode, operands ...byte) int {
	at := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = append(c.Code, operands...)
	for len(c.Lines) < len(c.Code) {
		c.Lines = append(c.Lines, int32(line))
	}
	return at
}

// addConstant pools the value, reusing indices for repeated primitives.
func (c *Chunk) addConstant(v Value) int {
	var key constKey
	pooled := true
	switch t := v.(type) {
	case Number:
		key = constKey{kind: KindNumber, num: float64(t)}
	case String:
		key = constKey{kind: KindString, str: string(t)}
	case Symbol:
		key = constKey{kind: KindSymbol, str: string(t)}
	case RefValue:
		key = constKey{kind: KindRef, str: t.Ref.String()}
	default:
		pooled = false
	}
	if pooled {
		if idx, ok := c.constIndex[key]; ok {
			return idx
		}
	}
	idx := len(c.Constants)
	c.Constants = append(c.Constants, v)
	if pooled {
		c.constIndex[key] = idx
	}
	return idx
}

// LineAt returns the source line for a code offset.
func (c *Chunk) LineAt(ip int) int {
	if ip >= 0 && ip < len(c.Lines) {
		return int(c.Lines[ip])
	}
	return 0
}

func readU16(code []byte, at int) uint16 {
	return binary.BigEndian.Uint16(code[at : at+2])
}

func readS16(code []byte, at int) int {
	return int(int16(readU16(code, at)))
}

// Instruction is one decoded (op, operand) pair.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand int
}

// Disassemble decodes the code stream. Repeated compilations of the same
// tree produce an identical instruction sequence.
func (c *Chunk) Disassemble() []Instruction {
	var out []Instruction
	for ip := 0; ip < len(c.Code); {
		op := Opcode(c.Code[ip])
		ins := Instruction{Offset: ip, Op: op}
		width := 0
		if int(op) < len(operandWidth) {
			width = operandWidth[op]
		}
		switch width {
		case 1:
			ins.Operand = int(int8(c.Code[ip+1]))
		case 2:
			ins.Operand = readS16(c.Code, ip+1)
		}
		out = append(out, ins)
		ip += 1 + width
	}
	return out
}

// DisassembleString renders one instruction per line, resolving constant
// operands for readability.
func (c *Chunk) DisassembleString() string {
	var b strings.Builder
	for _, ins := range c.Disassemble() {
		width := operandWidth[ins.Op]
		switch {
		case width == 0:
			fmt.Fprintf(&b, "%04d %s\n", ins.Offset, ins.Op)
		case ins.Op == OpConstant || ins.Op == OpLoadSymbol ||
			ins.Op == OpLoadMember || ins.Op == OpStoreMember:
			operand := ins.Operand & 0xFFFF
			if operand < len(c.Constants) {
				fmt.Fprintf(&b, "%04d %s %d ; %s\n", ins.Offset, ins.Op, operand, ToString(c.Constants[operand], 0))
			} else {
				fmt.Fprintf(&b, "%04d %s %d\n", ins.Offset, ins.Op, operand)
			}
		default:
			fmt.Fprintf(&b, "%04d %s %d\n", ins.Offset, ins.Op, ins.Operand)
		}
	}
	return b.String()
}
