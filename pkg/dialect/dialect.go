// Package dialect provides the SQL dialect configurations understood by the
// parser and the generator.
//
// A dialect decides how identifiers are delimited, how a row limit is
// written, and which optional syntax the lexer and parser accept.
package dialect

import "strings"

// LimitStyle is the syntax a dialect uses for a row cap.
type LimitStyle int

const (
	// LimitClause is a trailing LIMIT n [OFFSET m].
	LimitClause LimitStyle = iota
	// LimitTop is SELECT TOP n.
	LimitTop
	// LimitFetch is a trailing [OFFSET m ROWS] FETCH FIRST n ROWS ONLY.
	LimitFetch
)

// String returns the string representation of LimitStyle.
func (s LimitStyle) String() string {
	switch s {
	case LimitClause:
		return "limit"
	case LimitTop:
		return "top"
	case LimitFetch:
		return "fetch"
	default:
		return "unknown"
	}
}

// IdentifierConfig describes how a dialect delimits identifiers.
type IdentifierConfig struct {
	Quote    string // opening delimiter used when generating
	QuoteEnd string // closing delimiter used when generating
	Escape   string // how QuoteEnd is escaped inside an identifier
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig
	Limit       LimitStyle

	// Opening delimiters the lexer accepts for quoted identifiers, mapped
	// to their closing delimiter.
	quotes map[byte]byte

	doubleColonCast bool
	qualify         bool
	noTableAliasAs  bool
}

// QuoteIdentifier wraps name in the dialect's identifier delimiters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// IdentifierQuote returns the closing delimiter for an opening quote byte.
func (d *Dialect) IdentifierQuote(open byte) (byte, bool) {
	end, ok := d.quotes[open]
	return end, ok
}

// SupportsDoubleColonCast reports whether x::type is accepted.
func (d *Dialect) SupportsDoubleColonCast() bool { return d.doubleColonCast }

// SupportsQualify reports whether the QUALIFY clause is accepted.
func (d *Dialect) SupportsQualify() bool { return d.qualify }

// BackslashEscapes reports whether a backslash escapes the next character
// inside quoted text, as in the backtick-quoting dialects.
func (d *Dialect) BackslashEscapes() bool { return d.Identifiers.Quote == "`" }

// TableAliasAs reports whether table aliases are written with AS.
func (d *Dialect) TableAliasAs() bool { return !d.noTableAliasAs }

// String returns the dialect name.
func (d *Dialect) String() string { return d.Name }

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	d *Dialect
}

// NewDialect starts a dialect definition with ANSI double-quote
// identifiers and a LIMIT clause.
func NewDialect(name string) *Builder {
	return &Builder{d: &Dialect{
		Name:        name,
		Identifiers: IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
		Limit:       LimitClause,
		quotes:      map[byte]byte{'"': '"'},
	}}
}

// Identifiers sets the delimiters used when generating quoted identifiers.
// The lexer then accepts only this delimiter pair until AcceptQuote adds
// more; a double quote that is not an identifier delimiter starts a string.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.d.Identifiers = IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	b.d.quotes = map[byte]byte{quote[0]: quoteEnd[0]}
	return b
}

// AcceptQuote lets the lexer read identifiers delimited by open/end in
// addition to the generation delimiters.
func (b *Builder) AcceptQuote(open, end byte) *Builder {
	b.d.quotes[open] = end
	return b
}

// LimitStyle sets how a row limit is written.
func (b *Builder) LimitStyle(s LimitStyle) *Builder {
	b.d.Limit = s
	return b
}

// DoubleColonCast enables the x::type cast shorthand.
func (b *Builder) DoubleColonCast() *Builder {
	b.d.doubleColonCast = true
	return b
}

// Qualify enables the QUALIFY clause.
func (b *Builder) Qualify() *Builder {
	b.d.qualify = true
	return b
}

// NoTableAliasAs writes table aliases without the AS keyword.
func (b *Builder) NoTableAliasAs() *Builder {
	b.d.noTableAliasAs = true
	return b
}

// Build returns the finished dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
