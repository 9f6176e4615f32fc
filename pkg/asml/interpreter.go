package asml

import (
	"fmt"
	"io"
	"os"

	"asml/pkg/label"
	"asml/pkg/memory"
)

// NumRegisters is the register file size: x0..x31.
const NumRegisters = 32

// CallStackEntry is a snapshot of all 32 registers plus the command that
// follows the call site, pushed by CMD_CALL and popped by a matching
// CMD_RET.
type CallStackEntry struct {
	Registers [NumRegisters]int64
	Resume    *Command
}

// Interpreter is a sequential tree walker over a Command sequence,
// grounded on original_source/src/ci/interpreter.c and styled on the
// teacher's cpu.CPU: an explicit Step/Run pair, an Output io.Writer sink
// that defaults to os.Stdout, and fail-fast error handling with no
// rollback of effects already performed.
type Interpreter struct {
	Registers [NumRegisters]int64

	IsGreater bool
	IsEqual   bool
	IsLess    bool

	HadError bool
	ErrLine  int
	ErrMsg   string

	Memory *memory.Bytes
	Labels *label.Map[*Command]

	stack []CallStackEntry

	current *Command

	// Output is where PRINT writes. If nil, os.Stdout is used.
	Output io.Writer
}

// New constructs an Interpreter over mem, resolving branch/call targets
// against labels.
func New(mem *memory.Bytes, labels *label.Map[*Command]) *Interpreter {
	return &Interpreter{Memory: mem, Labels: labels}
}

func (intr *Interpreter) output() io.Writer {
	if intr.Output != nil {
		return intr.Output
	}
	return os.Stdout
}

func (intr *Interpreter) fail(line int, format string, args ...any) {
	intr.HadError = true
	intr.ErrLine = line
	intr.ErrMsg = fmt.Sprintf(format, args...)
}

// Err returns a RuntimeError describing the first failure, or nil if the
// interpreter has not failed.
func (intr *Interpreter) Err() error {
	if !intr.HadError {
		return nil
	}
	return newRuntimeError(intr.ErrLine, "%s", intr.ErrMsg)
}

// operandValue resolves an operand slot to its numeric value: the
// immediate itself if isImmediate, otherwise the named register's
// contents. This is the real implementation of the C reference's
// fetch_number_value, which is declared but left unimplemented there
// (see SPEC_FULL.md §9).
func (intr *Interpreter) operandValue(op Operand, isImmediate bool) int64 {
	if isImmediate {
		return op.Num
	}
	return intr.Registers[op.Num]
}

// conditionHolds implements the real body of the C reference's
// cond_holds, tested against the interpreter's three mutually exclusive
// comparison flags.
func (intr *Interpreter) conditionHolds(cond Cond) bool {
	switch cond {
	case CondNone:
		return true
	case CondEqual:
		return intr.IsEqual
	case CondNotEqual:
		return !intr.IsEqual
	case CondGreater:
		return intr.IsGreater
	case CondGreaterEqual:
		return intr.IsGreater || intr.IsEqual
	case CondLess:
		return intr.IsLess
	case CondLessEqual:
		return intr.IsLess || intr.IsEqual
	default:
		return false
	}
}

func (intr *Interpreter) setCompareFlags(greater, equal bool) {
	intr.IsGreater = greater
	intr.IsEqual = equal
	intr.IsLess = !greater && !equal
}

func (intr *Interpreter) resolveLabel(name string) (*Command, bool) {
	entry := intr.Labels.Lookup(name)
	if entry == nil {
		return nil, false
	}
	return entry.Command, true
}

// Run executes commands starting at the head of the program, until the
// current pointer becomes nil (a RET with an empty stack) or an error is
// set. Any call-stack entries still pending when the loop exits are
// discarded.
func (intr *Interpreter) Run(program *Command) {
	intr.current = program
	for intr.current != nil && !intr.HadError {
		intr.step()
	}
	intr.stack = nil
}

// StepOne executes a single command starting at cmd and returns the next
// command to execute, or nil if the program halted (a RET against an
// empty stack) or failed. Used by cmd/asmlvis to drive the interpreter
// one instruction at a time under manual or paced control.
func (intr *Interpreter) StepOne(cmd *Command) *Command {
	if cmd == nil || intr.HadError {
		return nil
	}
	intr.current = cmd
	intr.step()
	return intr.current
}

// step executes exactly one command and advances intr.current, except for
// control-flow commands which rewrite it directly.
func (intr *Interpreter) step() {
	cmd := intr.current
	switch cmd.Kind {
	case Noop:
		intr.current = cmd.Next

	case Mov:
		intr.Registers[cmd.Destination.Num] = cmd.ValA.Num
		intr.current = cmd.Next

	case Add:
		a := intr.Registers[cmd.ValA.Num]
		b := intr.operandValue(cmd.ValB, cmd.IsBImmediate)
		intr.Registers[cmd.Destination.Num] = a + b
		intr.current = cmd.Next

	case Sub:
		a := intr.Registers[cmd.ValA.Num]
		b := intr.operandValue(cmd.ValB, cmd.IsBImmediate)
		intr.Registers[cmd.Destination.Num] = a - b
		intr.current = cmd.Next

	case Cmp:
		dest := intr.Registers[cmd.Destination.Num]
		a := intr.operandValue(cmd.ValA, cmd.IsAImmediate)
		intr.setCompareFlags(dest > a, dest == a)
		intr.current = cmd.Next

	case CmpU:
		dest := uint64(intr.Registers[cmd.Destination.Num])
		a := uint64(intr.operandValue(cmd.ValA, cmd.IsAImmediate))
		intr.setCompareFlags(dest > a, dest == a)
		intr.current = cmd.Next

	case And:
		intr.Registers[cmd.Destination.Num] = intr.Registers[cmd.ValA.Num] & intr.Registers[cmd.ValB.Num]
		intr.current = cmd.Next

	case Eor:
		intr.Registers[cmd.Destination.Num] = intr.Registers[cmd.ValA.Num] ^ intr.Registers[cmd.ValB.Num]
		intr.current = cmd.Next

	case Orr:
		intr.Registers[cmd.Destination.Num] = intr.Registers[cmd.ValA.Num] | intr.Registers[cmd.ValB.Num]
		intr.current = cmd.Next

	case Asr:
		intr.Registers[cmd.Destination.Num] = intr.Registers[cmd.ValA.Num] >> cmd.ValB.Num
		intr.current = cmd.Next

	case Lsl:
		intr.Registers[cmd.Destination.Num] = intr.Registers[cmd.ValA.Num] << cmd.ValB.Num
		intr.current = cmd.Next

	case Lsr:
		intr.Registers[cmd.Destination.Num] = int64(uint64(intr.Registers[cmd.ValA.Num]) >> cmd.ValB.Num)
		intr.current = cmd.Next

	case Store:
		intr.execStore(cmd)

	case Load:
		intr.execLoad(cmd)

	case Put:
		intr.execPut(cmd)

	case Print:
		intr.execPrint(cmd)

	case Branch:
		intr.execBranch(cmd)

	case Call:
		intr.execCall(cmd)

	case Ret:
		intr.execRet(cmd)

	default:
		intr.fail(cmd.Line, "unknown command kind %d", cmd.Kind)
	}
}

func (intr *Interpreter) execStore(cmd *Command) {
	addr := uint64(intr.operandValue(cmd.ValA, cmd.IsAImmediate))
	length := int(cmd.ValB.Num)
	value := intr.Registers[cmd.Destination.Num]

	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	if !intr.Memory.Store(buf[:], addr, length) {
		intr.fail(cmd.Line, "STORE out of bounds at address %d, length %d", addr, length)
		return
	}
	intr.current = cmd.Next
}

func (intr *Interpreter) execLoad(cmd *Command) {
	length := int(cmd.ValA.Num)
	addr := uint64(intr.operandValue(cmd.ValB, cmd.IsBImmediate))

	intr.Registers[cmd.Destination.Num] = 0
	var buf [8]byte
	if !intr.Memory.Load(buf[:], addr, length) {
		intr.fail(cmd.Line, "LOAD out of bounds at address %d, length %d", addr, length)
		return
	}
	var value int64
	for i := 0; i < length; i++ {
		value |= int64(buf[i]) << (8 * i)
	}
	intr.Registers[cmd.Destination.Num] = value
	intr.current = cmd.Next
}

func (intr *Interpreter) execPut(cmd *Command) {
	addr := uint64(intr.operandValue(cmd.ValA, cmd.IsAImmediate))
	s := cmd.ValB.Str
	for i := 0; i <= len(s); i++ {
		var b byte
		if i < len(s) {
			b = s[i]
		}
		if !intr.Memory.StoreByte(addr+uint64(i), b) {
			intr.fail(cmd.Line, "PUT out of bounds at address %d", addr+uint64(i))
			return
		}
	}
	intr.current = cmd.Next
}

func (intr *Interpreter) execPrint(cmd *Command) {
	value := intr.operandValue(cmd.ValA, cmd.IsAImmediate)

	switch cmd.ValB.Base {
	case 'd':
		fmt.Fprintf(intr.output(), "%d\n", value)
	case 'x':
		fmt.Fprintf(intr.output(), "0x%x\n", uint64(value))
	case 'b':
		fmt.Fprintf(intr.output(), "0b%s\n", formatBinary(value))
	case 's':
		if !intr.printString(uint64(value)) {
			intr.fail(cmd.Line, "PRINT s: unterminated or out-of-bounds string at address %d", value)
			return
		}
	default:
		intr.fail(cmd.Line, "PRINT: unknown base %q", cmd.ValB.Base)
		return
	}
	intr.current = cmd.Next
}

// formatBinary renders the minimum-width binary representation of value,
// with "0" for zero - matching the C reference's cutoff-scanning loop.
func formatBinary(value int64) string {
	if value == 0 {
		return "0"
	}
	u := uint64(value)
	highBit := 63
	for highBit >= 0 && u&(1<<uint(highBit)) == 0 {
		highBit--
	}
	buf := make([]byte, highBit+1)
	for i := highBit; i >= 0; i-- {
		if u&(1<<uint(i)) != 0 {
			buf[highBit-i] = '1'
		} else {
			buf[highBit-i] = '0'
		}
	}
	return string(buf)
}

func (intr *Interpreter) printString(addr uint64) bool {
	w := intr.output()
	for {
		b, ok := intr.Memory.LoadByte(addr)
		if !ok {
			return false
		}
		if b == 0 {
			break
		}
		fmt.Fprintf(w, "%c", b)
		addr++
	}
	fmt.Fprintln(w)
	return true
}

func (intr *Interpreter) execBranch(cmd *Command) {
	if !intr.conditionHolds(cmd.BranchCond) {
		intr.current = cmd.Next
		return
	}
	target, ok := intr.resolveLabel(cmd.Destination.Str)
	if !ok {
		intr.fail(cmd.Line, "label not found: %s", cmd.Destination.Str)
		return
	}
	intr.current = target
}

func (intr *Interpreter) execCall(cmd *Command) {
	target, ok := intr.resolveLabel(cmd.Destination.Str)
	if !ok {
		intr.fail(cmd.Line, "label not found: %s", cmd.Destination.Str)
		return
	}
	intr.stack = append(intr.stack, CallStackEntry{
		Registers: intr.Registers,
		Resume:    cmd.Next,
	})
	intr.current = target
}

// execRet implements spec.md's x0-preserving return convention: x1..x31
// are restored from the call-stack snapshot, x0 is left untouched so it
// can carry the callee's result back to the caller. A RET against an
// empty stack halts execution cleanly (not an error).
func (intr *Interpreter) execRet(cmd *Command) {
	if len(intr.stack) == 0 {
		intr.current = nil
		return
	}
	top := intr.stack[len(intr.stack)-1]
	intr.stack = intr.stack[:len(intr.stack)-1]

	for i := 1; i < NumRegisters; i++ {
		intr.Registers[i] = top.Registers[i]
	}
	intr.current = top.Resume
}

// DumpState prints the error flag, the three comparison flags, and all 32
// registers in decimal, 8 per line - the diagnostic dump from spec.md §6.
func (intr *Interpreter) DumpState(w io.Writer) {
	fmt.Fprintf(w, "Error: %t\n", intr.HadError)
	fmt.Fprintf(w, "Flags:\n")
	fmt.Fprintf(w, "Is greater: %t\n", intr.IsGreater)
	fmt.Fprintf(w, "Is equal: %t\n", intr.IsEqual)
	fmt.Fprintf(w, "Is less: %t\n", intr.IsLess)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Variable values:\n")
	for i := 0; i < NumRegisters; i++ {
		fmt.Fprintf(w, "x%d: %d", i, intr.Registers[i])
		if i < NumRegisters-1 {
			fmt.Fprint(w, ", ")
		}
		if (i+1)%8 == 0 {
			fmt.Fprintln(w)
		}
	}
}
