package shell

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// FormatWidth is the line width above which commands are reflowed for
// log output.
const FormatWidth = 80

// Format pretty-prints a shell one-liner for logging. Commands that fit
// on one line are returned trimmed but otherwise unchanged; longer
// && / || / | chains are split across backslash-continuation lines with
// the operator at the start of each continuation, so the output is
// still valid shell. On parse error the input is returned as-is: this
// is display-only and must never reject what the interpreter will run.
func Format(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	prog, err := syntax.NewParser(syntax.KeepComments(true)).Parse(strings.NewReader(input), "")
	if err != nil {
		return input
	}

	printer := syntax.NewPrinter(syntax.Indent(2))
	lines := make([]string, len(prog.Stmts))
	for i, stmt := range prog.Stmts {
		lines[i] = formatStmt(printer, stmt)
	}
	return strings.Join(lines, "\n")
}

func formatStmt(printer *syntax.Printer, s *syntax.Stmt) string {
	flat := nodeStr(printer, s)
	if len(flat) <= FormatWidth && !strings.Contains(flat, "\n") {
		return flat
	}

	// Only bare operator chains are split; anything else (loops,
	// redirected compounds) keeps the standard printer's rendering.
	bin, ok := s.Cmd.(*syntax.BinaryCmd)
	if !ok || !isBareStmt(s) {
		return flat
	}

	chain := flattenChain(bin)
	if len(chain) < 2 {
		return flat
	}
	var b strings.Builder
	for i, el := range chain {
		if i > 0 {
			b.WriteString(" \\\n  ")
			b.WriteString(el.op)
			b.WriteByte(' ')
		}
		b.WriteString(nodeStr(printer, el.stmt))
	}
	return b.String()
}

func nodeStr(printer *syntax.Printer, node syntax.Node) string {
	var buf bytes.Buffer
	printer.Print(&buf, node)
	return strings.TrimRight(buf.String(), "\n")
}

// chainElem is one element of a flattened operator chain; op is the
// operator preceding it ("" for the first element).
type chainElem struct {
	op   string
	stmt *syntax.Stmt
}

// flattenChain linearizes a left-associative binary command tree into
// (operator, statement) pairs.
func flattenChain(cmd *syntax.BinaryCmd) []chainElem {
	var chain []chainElem
	collectChain(cmd, &chain)
	return chain
}

func collectChain(cmd *syntax.BinaryCmd, chain *[]chainElem) {
	if left, ok := cmd.X.Cmd.(*syntax.BinaryCmd); ok && isBareStmt(cmd.X) {
		collectChain(left, chain)
	} else {
		*chain = append(*chain, chainElem{stmt: cmd.X})
	}

	op := cmd.Op.String()
	if right, ok := cmd.Y.Cmd.(*syntax.BinaryCmd); ok && isBareStmt(cmd.Y) {
		var sub []chainElem
		collectChain(right, &sub)
		if len(sub) > 0 {
			sub[0].op = op
			*chain = append(*chain, sub...)
		}
	} else {
		*chain = append(*chain, chainElem{op: op, stmt: cmd.Y})
	}
}

// isBareStmt reports whether s is a plain wrapper with no negation,
// redirects, or backgrounding that splitting would reorder.
func isBareStmt(s *syntax.Stmt) bool {
	return !s.Negated && !s.Background && len(s.Redirs) == 0
}

// Quote returns s quoted for safe interpolation into a command string.
func Quote(s string) string {
	quoted, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Control bytes in a path; single quotes are the safe fallback.
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return quoted
}
