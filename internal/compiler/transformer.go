package compiler

import (
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// ChunkName is the source name reported in positions and tracebacks of evaluated code.
const ChunkName = "<eval-repl>"

// Unit is an executable unit produced from raw input.
type Unit struct {
	// Shape is the transformation applied to the input.
	Shape domain.Shape
	// Input is the normalized input the unit was built from.
	Input string
	// Source is the Lua chunk handed to the engine.
	Source string
}

// Normalize drops blank lines and trims the remaining ones.
func Normalize(src string) []string {
	raw := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// Transform classifies src and rewrites it into an executable unit.
//
// A single line without ';' and without a top-level assignment that parses as
// an expression list becomes an implicit-return unit. Everything else is a
// statement block whose top-level locals are hoisted into the environment.
func Transform(src string) Unit {
	lines := Normalize(src)
	input := strings.Join(lines, "\n")

	if len(lines) == 1 && !strings.Contains(input, ";") && !hasAssignment(input) && isExpression(input) {
		return Unit{
			Shape:  domain.ShapeExpression,
			Input:  input,
			Source: "return " + input,
		}
	}

	return Unit{
		Shape:  domain.ShapeStatement,
		Input:  input,
		Source: hoistLocals(lines),
	}
}

// Statement builds a statement unit from src without attempting the
// expression shape. Used for code that is never echoed, such as preludes.
func Statement(src string) Unit {
	lines := Normalize(src)
	return Unit{
		Shape:  domain.ShapeStatement,
		Input:  strings.Join(lines, "\n"),
		Source: hoistLocals(lines),
	}
}

// hasAssignment reports whether line parses as a chunk with a top-level assignment.
func hasAssignment(line string) bool {
	chunk, err := parse.Parse(strings.NewReader(line), ChunkName)
	if err != nil {
		return false
	}
	for _, stmt := range chunk {
		switch stmt.(type) {
		case *ast.AssignStmt, *ast.LocalAssignStmt:
			return true
		}
	}
	return false
}

// isExpression reports whether line compiles as the operand of a return statement.
func isExpression(line string) bool {
	chunk, err := parse.Parse(strings.NewReader("return "+line), ChunkName)
	if err != nil || len(chunk) != 1 {
		return false
	}
	ret, ok := chunk[0].(*ast.ReturnStmt)
	if !ok || len(ret.Exprs) == 0 {
		return false
	}
	_, err = lua.Compile(chunk, ChunkName)
	return err == nil
}

// hoistLocals rewrites top-level local declarations into environment bindings,
// wherever they appear on a line. Locals inside blocks and functions keep their scope.
// Source that does not parse is returned unchanged so the engine reports the syntax error.
func hoistLocals(lines []string) string {
	source := strings.Join(lines, "\n")
	chunk, err := parse.Parse(strings.NewReader(source), ChunkName)
	if err != nil {
		return source
	}

	var stmts []*ast.LocalAssignStmt
	for _, stmt := range chunk {
		if local, ok := stmt.(*ast.LocalAssignStmt); ok {
			stmts = append(stmts, local)
		}
	}
	decls := topLevelLocals(source)
	if len(decls) != len(stmts) {
		return source
	}

	var sb strings.Builder
	last := 0
	for i, d := range decls {
		sb.WriteString(source[last:d.start])
		if len(stmts[i].Exprs) == 0 {
			// `local a, b` has no assignment form; bind explicit nils.
			sb.WriteString(source[d.names:d.namesEnd])
			sb.WriteString(" = nil")
			last = d.namesEnd
			continue
		}
		last = d.names
	}
	sb.WriteString(source[last:])
	return sb.String()
}

// localDecl locates one top-level `local` keyword and the name list after it.
type localDecl struct {
	start    int
	names    int
	namesEnd int
}

// topLevelLocals scans src for `local` keywords outside any block,
// skipping strings and comments.
func topLevelLocals(src string) []localDecl {
	var decls []localDecl
	depth := 0
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '-' && strings.HasPrefix(src[i:], "--"):
			i += 2
			if n := longBracket(src[i:]); n > 0 {
				i = skipLong(src, i, n)
				continue
			}
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '"' || c == '\'':
			i++
			for i < len(src) && src[i] != c && src[i] != '\n' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case c == '[':
			if n := longBracket(src[i:]); n > 0 {
				i = skipLong(src, i, n)
				continue
			}
			i++
		case isNameStart(c):
			j := scanName(src, i)
			word := src[i:j]
			field := i > 0 && (src[i-1] == '.' || src[i-1] == ':')
			if !field {
				switch word {
				case "function", "if", "do", "repeat":
					depth++
				case "end", "until":
					depth--
				case "local":
					if depth == 0 {
						decls = append(decls, localNames(src, i, j))
					}
				}
			}
			i = j
		case c >= '0' && c <= '9':
			for i < len(src) && (isNameStart(src[i]) || (src[i] >= '0' && src[i] <= '9') || src[i] == '.') {
				i++
			}
		default:
			i++
		}
	}
	return decls
}

// localNames measures the name list following the `local` keyword at [start, end).
func localNames(src string, start, end int) localDecl {
	d := localDecl{start: start}
	i := skipSpace(src, end)
	d.names = i
	d.namesEnd = i
	for i < len(src) && isNameStart(src[i]) {
		i = scanName(src, i)
		d.namesEnd = i
		i = skipSpace(src, i)
		if i >= len(src) || src[i] != ',' {
			break
		}
		i = skipSpace(src, i+1)
	}
	return d
}

// longBracket returns the length of an opening long bracket such as [[ or [==[, or 0.
func longBracket(s string) int {
	if len(s) == 0 || s[0] != '[' {
		return 0
	}
	i := 1
	for i < len(s) && s[i] == '=' {
		i++
	}
	if i < len(s) && s[i] == '[' {
		return i + 1
	}
	return 0
}

// skipLong returns the index after the long bracket opened at i with length n.
func skipLong(src string, i, n int) int {
	closing := "]" + strings.Repeat("=", n-2) + "]"
	if k := strings.Index(src[i+n:], closing); k >= 0 {
		return i + n + k + len(closing)
	}
	return len(src)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func scanName(src string, i int) int {
	for i < len(src) && (isNameStart(src[i]) || (src[i] >= '0' && src[i] <= '9')) {
		i++
	}
	return i
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

// Check reports the syntax error of src compiled as a statement block, if any.
func Check(src string) error {
	unit := Statement(src)
	chunk, err := parse.Parse(strings.NewReader(unit.Source), ChunkName)
	if err != nil {
		return err
	}
	_, err = lua.Compile(chunk, ChunkName)
	return err
}
