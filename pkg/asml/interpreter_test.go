package asml

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"asml/pkg/memory"
)

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func runSource(t *testing.T, src string) (string, *Interpreter) {
	t.Helper()
	p := NewParser([]byte(src), 16)
	program := p.Parse()
	if p.HadError() {
		t.Fatalf("parse error: %v", p.Err())
	}
	mem := memory.New(1024)
	intr := New(mem, p.Labels)
	var out bytes.Buffer
	intr.Output = &out
	intr.Run(program)
	return out.String(), intr
}

func TestInterpretAddAndPrint(t *testing.T) {
	out, intr := runSource(t, "mov x1 5\nmov x2 7\nadd x3 x1 x2\nprint x3 d\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "12\n" {
		t.Errorf("output = %q, want %q", out, "12\n")
	}
}

func TestInterpretBranchLoop(t *testing.T) {
	src := "mov x1 0\nmov x2 3\ntop:\n" +
		"cmp x1 x2\n" +
		"beq done\n" +
		"add x1 x1 1\n" +
		"b top\n" +
		"done:\n" +
		"print x1 d\n"
	out, intr := runSource(t, src)
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
}

func TestInterpretCallPreservesCalleeResultInX0(t *testing.T) {
	src := "mov x0 0\n" +
		"call add_one\n" +
		"print x0 d\n" +
		"b end\n" +
		"add_one:\n" +
		"mov x1 1\n" +
		"add x0 x0 x1\n" +
		"ret\n" +
		"end:\n"
	out, intr := runSource(t, src)
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestInterpretRetOnEmptyStackHaltsCleanly(t *testing.T) {
	_, intr := runSource(t, "mov x1 1\nret\nmov x1 99\n")
	if intr.HadError {
		t.Fatalf("RET on an empty stack must halt cleanly, got error: %v", intr.Err())
	}
	if intr.Registers[1] != 1 {
		t.Errorf("x1 = %d, want 1 (the instruction after RET must not execute)", intr.Registers[1])
	}
}

func TestInterpretBranchToUnknownLabelFails(t *testing.T) {
	_, intr := runSource(t, "b nowhere\n")
	if !intr.HadError {
		t.Fatalf("expected a runtime error for an unresolved branch target")
	}
}

func TestInterpretStoreLoadRoundTrip(t *testing.T) {
	out, intr := runSource(t, "mov x1 511\nstore x1 0 2\nload x2 2 0\nprint x2 d\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "511\n" {
		t.Errorf("output = %q, want %q", out, "511\n")
	}
}

func TestInterpretPutAndPrintString(t *testing.T) {
	out, intr := runSource(t, "put 0 \"hi\"\nprint 0 s\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "hi\n" {
		t.Errorf("output = %q, want %q", out, "hi\n")
	}
}

func TestInterpretPrintHexAndBinary(t *testing.T) {
	out, intr := runSource(t, "mov x1 255\nprint x1 x\nprint x1 b\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	want := "0xff\n0b11111111\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestInterpretBitwiseInstructions(t *testing.T) {
	tests := []struct {
		op   string
		a, b int64
		want int64
	}{
		{"and", 0b1100, 0b1010, 0b1000},
		{"eor", 0b1100, 0b1010, 0b0110},
		{"orr", 0b1100, 0b1010, 0b1110},
	}
	for _, tc := range tests {
		src := "mov x1 " + itoa(tc.a) + "\nmov x2 " + itoa(tc.b) + "\n" +
			tc.op + " x3 x1 x2\nprint x3 d\n"
		out, intr := runSource(t, src)
		if intr.HadError {
			t.Fatalf("%s: unexpected runtime error: %v", tc.op, intr.Err())
		}
		want := itoa(tc.want) + "\n"
		if out != want {
			t.Errorf("%s: output = %q, want %q", tc.op, out, want)
		}
	}
}

func TestInterpretShiftInstructions(t *testing.T) {
	tests := []struct {
		op   string
		in   int64
		n    int64
		want int64
	}{
		{"lsl", 5, 2, 20},
		{"lsr", 8, 2, 2},
	}
	for _, tc := range tests {
		src := "mov x1 " + itoa(tc.in) + "\n" + tc.op + " x2 x1 " + itoa(tc.n) + "\nprint x2 d\n"
		out, intr := runSource(t, src)
		if intr.HadError {
			t.Fatalf("%s: unexpected runtime error: %v", tc.op, intr.Err())
		}
		want := itoa(tc.want) + "\n"
		if out != want {
			t.Errorf("%s: output = %q, want %q", tc.op, out, want)
		}
	}
}

// ASR needs a negative dividend; since ASML has no negative-literal syntax,
// produce one with SUB (0 - 8) rather than a literal -8.
func TestInterpretAsrOnNegativeValue(t *testing.T) {
	out, intr := runSource(t, "mov x1 0\nmov x2 8\nsub x1 x1 x2\nasr x3 x1 2\nprint x3 d\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "-2\n" {
		t.Errorf("output = %q, want %q", out, "-2\n")
	}
}

// TestInterpretLslAndPrintBinary is spec scenario 6: mov x1 5 / lsl x2 x1 2 /
// print x2 b must print exactly 0b10100.
func TestInterpretLslAndPrintBinary(t *testing.T) {
	out, intr := runSource(t, "mov x1 5\nlsl x2 x1 2\nprint x2 b\n")
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "0b10100\n" {
		t.Errorf("output = %q, want %q", out, "0b10100\n")
	}
}

func TestInterpretCmpUTreatsRegisterAsUnsigned(t *testing.T) {
	// x1 = 0 - 1 wraps to all-ones: as unsigned it is the largest uint64,
	// so it must compare greater than 1 even though it is negative signed.
	src := "mov x1 0\nmov x2 1\nsub x1 x1 x2\ncmpu x1 1\nbgt greater\n" +
		"print 0 d\nb end\ngreater:\nprint 1 d\nend:\n"
	out, intr := runSource(t, src)
	if intr.HadError {
		t.Fatalf("unexpected runtime error: %v", intr.Err())
	}
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestDumpStateListsAllRegisters(t *testing.T) {
	_, intr := runSource(t, "mov x0 42\n")
	var buf bytes.Buffer
	intr.DumpState(&buf)
	s := buf.String()
	if !strings.Contains(s, "x0: 42") {
		t.Errorf("dump missing x0 value:\n%s", s)
	}
	if !strings.Contains(s, "x31:") {
		t.Errorf("dump missing x31:\n%s", s)
	}
}
