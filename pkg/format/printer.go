package format

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/ast"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Printer accumulates generated SQL.
type Printer struct {
	dialect *dialect.Dialect
	output  *strings.Builder
	err     error
}

func newPrinter(d *dialect.Dialect) *Printer {
	return &Printer{
		dialect: d,
		output:  &strings.Builder{},
	}
}

// String returns the generated output.
func (p *Printer) String() string {
	return p.output.String()
}

func (p *Printer) write(s string) {
	p.output.WriteString(s)
}

func (p *Printer) space() {
	p.output.WriteByte(' ')
}

// kw prints keywords for the given token types separated by spaces.
func (p *Printer) kw(tokens ...token.TokenType) {
	for i, t := range tokens {
		if i > 0 {
			p.space()
		}
		p.write(t.String())
	}
}

// fail records the first unsupported node.
func (p *Printer) fail(node ast.Node) {
	if p.err == nil {
		p.err = &UnsupportedNodeError{Node: node}
	}
}

// formatList prints count items separated by sep.
func (p *Printer) formatList(count int, format func(i int), sep string) {
	for i := 0; i < count; i++ {
		if i > 0 {
			p.write(sep)
		}
		format(i)
	}
}

// formatIdent writes an identifier, delimiting it when it was quoted or
// cannot be written bare.
func (p *Printer) formatIdent(id ast.Ident) {
	if id.Quoted || needsQuoting(id.Value) {
		p.write(p.dialect.QuoteIdentifier(id.Value))
		return
	}
	p.write(id.Value)
}

func (p *Printer) formatIdents(parts []ast.Ident, sep string) {
	p.formatList(len(parts), func(i int) { p.formatIdent(parts[i]) }, sep)
}

// needsQuoting reports whether name cannot be written as a bare
// identifier.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c >= 0x80
		if i == 0 && !letter {
			return true
		}
		if !letter && !(c >= '0' && c <= '9') && c != '$' {
			return true
		}
	}
	return token.IsReserved(token.LookupIdent(strings.ToLower(name)))
}

// quoteString writes a single-quoted string literal. Quotes already
// escaped with a backslash are left alone.
func (p *Printer) quoteString(s string) {
	var b strings.Builder
	b.WriteByte('\'')
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && p.dialect.BackslashEscapes():
			escaped = true
		case c == '\'':
			b.WriteByte('\'')
		}
		b.WriteByte(c)
	}
	b.WriteByte('\'')
	p.write(b.String())
}
