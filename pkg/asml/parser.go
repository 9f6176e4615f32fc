package asml

import (
	"strconv"
	"strings"

	"asml/pkg/label"
	"asml/pkg/lexer"
	"asml/pkg/token"
)

// Parser is a recursive-descent, one-token-lookahead parser over the
// token stream produced by pkg/lexer. It builds a linked sequence of
// Commands in declaration order and registers labels into Labels as it
// goes, grounded directly on original_source/src/ci/parser.c.
type Parser struct {
	lex     *lexer.Lexer
	current token.Token
	next    token.Token

	hadError bool
	err      *ParseError
	lines    []string

	Labels *label.Map[*Command]
}

// NewParser constructs a Parser over src, reading the first two tokens to
// prime the one-token lookahead. labelCapacity sizes the label table.
func NewParser(src []byte, labelCapacity int) *Parser {
	l := lexer.New(src)
	p := &Parser{
		lex:    l,
		lines:  strings.Split(string(src), "\n"),
		Labels: label.NewMap[*Command](labelCapacity),
	}
	p.current = l.Next()
	p.next = l.Next()
	return p
}

// HadError reports whether parsing stopped early because of a malformed
// instruction or an illegal lexeme from the lexer.
func (p *Parser) HadError() bool {
	return p.hadError || p.lex.HadError
}

func (p *Parser) isAtEnd() bool {
	return p.current.Kind == token.EOF
}

func (p *Parser) advance() token.Token {
	tok := p.current
	p.current = p.next
	p.next = p.lex.Next()
	return tok
}

func (p *Parser) consume(kind token.Kind) bool {
	if p.current.Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) skipNewlines() {
	for p.consume(token.NL) {
	}
}

// consumeLineEnd requires the current token to be NL or EOF, the two valid
// terminators for a command, per spec.md §4.4's grammar.
func (p *Parser) consumeLineEnd() bool {
	return p.consume(token.NL) || p.consume(token.EOF)
}

func (p *Parser) errorf(format string, args ...any) {
	p.hadError = true
	if p.err == nil {
		p.err = newParseError(p.lines, p.current.Line, format, args...)
	}
}

// Err returns the first parse error encountered, or nil if parsing
// succeeded (or hasn't failed yet).
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// isVariableToken reports whether tok could be a register reference. This
// checks the lexeme shape only, not the token Kind: the keyword table
// assigns "b" the BRANCH kind, but a base signifier like "b" (binary) is
// still disambiguated by shape,
// matching original_source/src/ci/parser.c's is_variable/is_base, which
// inspect token.lexeme directly rather than token.type.
func isVariableToken(tok token.Token) bool {
	return len(tok.Lexeme) >= 2 && tok.Lexeme[0] == 'x'
}

func isBaseToken(tok token.Token) bool {
	if len(tok.Lexeme) != 1 {
		return false
	}
	switch tok.Lexeme[0] {
	case 'd', 'x', 'b', 's':
		return true
	default:
		return false
	}
}

func parseVariableIndex(tok token.Token) (int64, bool) {
	n, err := strconv.ParseInt(tok.Lexeme[1:], 10, 64)
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

func parseNumberLiteral(tok token.Token) (int64, bool) {
	n, err := strconv.ParseInt(tok.Lexeme, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseVariableOperand requires the current token to be a register
// reference in [x0, x31]; on success it advances and fills op.Num with the
// register index. It leaves the parser untouched on failure.
func (p *Parser) parseVariableOperand(op *Operand) bool {
	if !isVariableToken(p.current) {
		return false
	}
	n, ok := parseVariableIndex(p.current)
	if !ok {
		return false
	}
	op.Num = n
	p.advance()
	return true
}

// parseImmediate requires the current token to be a NUM; on success it
// advances and fills op.Num.
func (p *Parser) parseImmediate(op *Operand) bool {
	if p.current.Kind != token.NUM {
		return false
	}
	n, ok := parseNumberLiteral(p.current)
	if !ok {
		return false
	}
	op.Num = n
	p.advance()
	return true
}

// parseVarOrImm tries an immediate first when the current token is a NUM,
// otherwise requires a variable operand. isImmediate records which arm
// matched.
func (p *Parser) parseVarOrImm(op *Operand, isImmediate *bool) bool {
	if p.current.Kind == token.NUM {
		n, ok := parseNumberLiteral(p.current)
		if !ok {
			return false
		}
		op.Num = n
		*isImmediate = true
		p.advance()
		return true
	}
	if !p.parseVariableOperand(op) {
		return false
	}
	*isImmediate = false
	return true
}

// parseBase requires a single-byte base signifier in {d, x, b, s}.
func (p *Parser) parseBase(op *Operand) bool {
	if !isBaseToken(p.current) {
		return false
	}
	op.Base = p.current.Lexeme[0]
	p.advance()
	return true
}

func (p *Parser) parseIdentLexeme() (string, bool) {
	if p.current.Kind != token.IDENT {
		return "", false
	}
	tok := p.advance()
	return tok.Lexeme, true
}

// Parse runs the parser to completion, returning the head of the parsed
// command sequence and registering labels into p.Labels. On the first
// malformed instruction it sets HadError and returns the commands parsed
// so far (the caller must check HadError before interpreting).
func (p *Parser) Parse() *Command {
	var head, tail *Command
	appendCmd := func(cmd *Command) {
		if cmd == nil {
			return
		}
		if head == nil {
			head = cmd
			tail = cmd
			return
		}
		tail.Next = cmd
		tail = cmd
	}

	for !p.isAtEnd() && !p.HadError() {
		cmd := p.parseLine()
		appendCmd(cmd)
	}
	if p.lex.HadError && p.err == nil {
		p.err = newParseError(p.lines, p.current.Line, "illegal character in source")
	}
	return head
}

// parseLine parses one source line: an optional label, an optional
// instruction, and its terminating NL/EOF. Blank lines before the
// instruction, including those after a label, are skipped, so a label
// attaches to the next instruction parsed in the same call. It returns the
// command the line produced, or nil when only blank lines remain or the
// instruction is malformed.
func (p *Parser) parseLine() *Command {
	p.skipNewlines()
	if p.isAtEnd() {
		return nil
	}

	var labelName string
	haveLabel := false
	if p.current.Kind == token.IDENT && p.next.Kind == token.COLON {
		labelName = p.current.Lexeme
		haveLabel = true
		p.advance() // IDENT
		p.advance() // COLON
		p.skipNewlines()
	}

	if p.isAtEnd() {
		if haveLabel {
			// A label declared at end-of-file with no following
			// instruction attaches to a synthesized no-op terminator,
			// per spec.md §4.4.
			term := &Command{Kind: Noop, Line: p.current.Line}
			p.Labels.Put(labelName, term)
			return term
		}
		return nil
	}

	cmd := p.parseInstruction()
	if cmd == nil {
		return nil
	}
	if haveLabel {
		p.Labels.Put(labelName, cmd)
	}
	return cmd
}

func (p *Parser) parseInstruction() *Command {
	tok := p.current
	line := tok.Line

	switch tok.Kind {
	case token.NL:
		p.advance()
		return nil

	case token.MOV:
		p.advance()
		cmd := &Command{Kind: Mov, Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseImmediate(&cmd.ValA) ||
			!p.consumeLineEnd() {
			p.errorf("malformed MOV instruction")
			return nil
		}
		cmd.IsAImmediate = true
		return cmd

	case token.ADD, token.SUB:
		p.advance()
		cmd := &Command{Kind: addOrSub(tok.Kind), Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseVariableOperand(&cmd.ValA) ||
			!p.parseVarOrImm(&cmd.ValB, &cmd.IsBImmediate) ||
			!p.consumeLineEnd() {
			p.errorf("malformed %s instruction", tok.Kind)
			return nil
		}
		return cmd

	case token.AND, token.EOR, token.ORR:
		p.advance()
		cmd := &Command{Kind: bitwiseKind(tok.Kind), Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseVariableOperand(&cmd.ValA) ||
			!p.parseVariableOperand(&cmd.ValB) ||
			!p.consumeLineEnd() {
			p.errorf("malformed %s instruction", tok.Kind)
			return nil
		}
		return cmd

	case token.ASR, token.LSL, token.LSR:
		p.advance()
		cmd := &Command{Kind: shiftKind(tok.Kind), Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseVariableOperand(&cmd.ValA) ||
			!p.parseImmediate(&cmd.ValB) ||
			!p.consumeLineEnd() {
			p.errorf("malformed %s instruction", tok.Kind)
			return nil
		}
		cmd.IsBImmediate = true
		return cmd

	case token.CMP, token.CMP_U:
		p.advance()
		cmd := &Command{Kind: cmpKind(tok.Kind), Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseVarOrImm(&cmd.ValA, &cmd.IsAImmediate) ||
			!p.consumeLineEnd() {
			p.errorf("malformed %s instruction", tok.Kind)
			return nil
		}
		return cmd

	case token.STORE:
		p.advance()
		cmd := &Command{Kind: Store, Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseVarOrImm(&cmd.ValA, &cmd.IsAImmediate) ||
			!p.parseImmediate(&cmd.ValB) ||
			!p.consumeLineEnd() {
			p.errorf("malformed STORE instruction")
			return nil
		}
		cmd.IsBImmediate = true
		return cmd

	case token.LOAD:
		p.advance()
		cmd := &Command{Kind: Load, Line: line}
		if !p.parseVariableOperand(&cmd.Destination) ||
			!p.parseImmediate(&cmd.ValA) ||
			!p.parseVarOrImm(&cmd.ValB, &cmd.IsBImmediate) ||
			!p.consumeLineEnd() {
			p.errorf("malformed LOAD instruction")
			return nil
		}
		cmd.IsAImmediate = true
		return cmd

	case token.PUT:
		p.advance()
		cmd := &Command{Kind: Put, Line: line}
		if !p.parseVarOrImm(&cmd.ValA, &cmd.IsAImmediate) {
			p.errorf("malformed PUT instruction: expected an address operand")
			return nil
		}
		if p.current.Kind != token.STR {
			p.errorf("malformed PUT instruction: expected a string literal")
			return nil
		}
		str := p.advance()
		if !p.consumeLineEnd() {
			p.errorf("malformed PUT instruction: unexpected trailing tokens")
			return nil
		}
		cmd.ValB.Str = str.Lexeme
		cmd.IsBString = true
		return cmd

	case token.PRINT:
		p.advance()
		cmd := &Command{Kind: Print, Line: line}
		if !p.parseVarOrImm(&cmd.ValA, &cmd.IsAImmediate) ||
			!p.parseBase(&cmd.ValB) ||
			!p.consumeLineEnd() {
			p.errorf("malformed PRINT instruction")
			return nil
		}
		return cmd

	case token.BRANCH, token.BRANCH_EQ, token.BRANCH_NEQ,
		token.BRANCH_GT, token.BRANCH_GE, token.BRANCH_LT, token.BRANCH_LE:
		p.advance()
		name, ok := p.parseIdentLexeme()
		if !ok || !p.consumeLineEnd() {
			p.errorf("malformed branch instruction: expected a label name")
			return nil
		}
		return &Command{
			Kind:        Branch,
			BranchCond:  branchCondition(tok.Kind),
			Destination: Operand{Str: name},
			IsAString:   true,
			Line:        line,
		}

	case token.CALL:
		p.advance()
		name, ok := p.parseIdentLexeme()
		if !ok || !p.consumeLineEnd() {
			p.errorf("malformed CALL instruction: expected a label name")
			return nil
		}
		return &Command{
			Kind:        Call,
			Destination: Operand{Str: name},
			IsAString:   true,
			Line:        line,
		}

	case token.RET:
		p.advance()
		if !p.consumeLineEnd() {
			p.errorf("malformed RET instruction: unexpected trailing tokens")
			return nil
		}
		return &Command{Kind: Ret, Line: line}

	case token.EOF:
		return nil

	default:
		p.advance()
		p.errorf("unexpected token %s", tok.Kind)
		return nil
	}
}

func addOrSub(k token.Kind) Kind {
	if k == token.ADD {
		return Add
	}
	return Sub
}

func bitwiseKind(k token.Kind) Kind {
	switch k {
	case token.AND:
		return And
	case token.EOR:
		return Eor
	default:
		return Orr
	}
}

func shiftKind(k token.Kind) Kind {
	switch k {
	case token.ASR:
		return Asr
	case token.LSL:
		return Lsl
	default:
		return Lsr
	}
}

func cmpKind(k token.Kind) Kind {
	if k == token.CMP {
		return Cmp
	}
	return CmpU
}

func branchCondition(k token.Kind) Cond {
	switch k {
	case token.BRANCH_EQ:
		return CondEqual
	case token.BRANCH_NEQ:
		return CondNotEqual
	case token.BRANCH_GT:
		return CondGreater
	case token.BRANCH_GE:
		return CondGreaterEqual
	case token.BRANCH_LT:
		return CondLess
	case token.BRANCH_LE:
		return CondLessEqual
	default:
		return CondNone
	}
}
