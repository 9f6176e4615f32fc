// Package asml implements the ASML parser (with label resolution) and the
// tree-walking interpreter that executes its output.
package asml

// Kind identifies the instruction a Command performs.
type Kind int

const (
	// Noop is emitted for a label declared at end-of-file with no
	// following instruction (spec.md §4.4); it has no effect.
	Noop Kind = iota
	Mov
	Add
	Sub
	Cmp
	CmpU
	And
	Eor
	Asr
	Lsl
	Lsr
	Orr
	Store
	Load
	Put
	Print
	Branch
	Call
	Ret
)

// Cond is a branch-condition tag, tested against the interpreter's three
// comparison flags.
type Cond int

const (
	CondNone Cond = iota
	CondEqual
	CondNotEqual
	CondGreater
	CondGreaterEqual
	CondLess
	CondLessEqual
)

// Operand holds whichever of a signed 64-bit number, a single base
// signifier byte ('d', 'x', 'b', 's'), or an owned string applies to the
// Command slot it fills in. Which field is meaningful is determined by the
// owning Command's role flags (IsAImmediate, etc.) and by the instruction
// Kind - e.g. Print's second operand is always a base byte, Put's second
// operand is always a string.
type Operand struct {
	Num  int64
	Base byte
	Str  string
}

// Command is one parsed instruction: a node in the linear program sequence
// produced by Parse. Destination, ValA, and ValB are filled in according to
// the instruction shapes in spec.md §4.4; the Is*Immediate/Is*String flags
// record which union member of ValA/ValB is active. Next links to the
// following command in program order; control-flow instructions (Branch,
// Call, Ret) are executed by rewriting the interpreter's current pointer
// rather than by following Next.
type Command struct {
	Kind        Kind
	Destination Operand
	ValA        Operand
	ValB        Operand

	IsAImmediate bool
	IsAString    bool
	IsBImmediate bool
	IsBString    bool

	BranchCond Cond

	Next *Command
	Line int
}
