package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

const (
	replPrompt             = "sqllineage> "
	replContinuationPrompt = "       ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Analyze queries interactively",
		Long: `Start an interactive session. Statements end with a semicolon and may
span several lines; each statement's column lineage is printed.

Type .help for the dot-commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			historyFile := ""
			if home, err := os.UserHomeDir(); err == nil {
				historyFile = filepath.Join(home, ".sqllineage_history")
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     historyFile,
				AutoComplete:    newDotCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sqllineage REPL")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
			_, _ = fmt.Fprintln(cmd.OutOrStdout())

			s := &replSession{cmdCtx: cmdCtx, dialect: dialectFor(cmdCtx.Cfg)}
			return s.run(cmd.Context(), rl)
		},
	}
}

// lineReader is the part of *readline.Instance the session uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// replAction is what the session does with a complete statement.
type replAction int

const (
	actionLineage replAction = iota
	actionTables
)

type replSession struct {
	cmdCtx  *CommandContext
	dialect string
	// next applies to the next statement only, then resets to lineage.
	next replAction
	buf  strings.Builder
}

func (s *replSession) run(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if s.handleLine(ctx, line) {
			return nil
		}
		if s.buf.Len() > 0 {
			rl.SetPrompt(replContinuationPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// handleLine processes one input line and reports whether to quit.
func (s *replSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	// Dot-commands are only recognized between statements.
	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	// Accumulate multi-line SQL until semicolon
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	query := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()
	action := s.next
	s.next = actionLineage

	if err := s.execute(ctx, query, action); err != nil {
		s.cmdCtx.Renderer.Error(err.Error())
	}
	s.cmdCtx.Renderer.Println()
	return false
}

func (s *replSession) execute(ctx context.Context, query string, action replAction) error {
	a := s.cmdCtx.Analyzer
	r := s.cmdCtx.Renderer
	switch action {
	case actionTables:
		tables, err := a.GetTables(ctx, query, s.dialect)
		if err != nil {
			return err
		}
		return renderTables(r, tables)
	default:
		res, err := a.ColumnLineage(ctx, query, s.dialect, s.cmdCtx.Schema)
		if err != nil {
			return err
		}
		return renderLineage(r, res)
	}
}

func (s *replSession) handleDotCommand(line string) bool {
	r := s.cmdCtx.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".dialect":
		if len(parts) < 2 {
			r.Printf("dialect: %s\n", s.dialect)
			return false
		}
		d, err := dialect.Parse(parts[1])
		if err != nil {
			r.Error(err.Error())
			return false
		}
		s.dialect = d.Name
		r.Printf("dialect set to %s\n", d.Name)

	case ".tables":
		s.next = actionTables
		r.Muted("next statement: tables")

	case ".lineage":
		s.next = actionLineage
		r.Muted("next statement: lineage")

	default:
		r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .dialect [name]  Show or set the SQL dialect
  .tables          Print the tables of the next statement
  .lineage         Print the column lineage of the next statement (default)
  .quit / .exit    Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newDotCompleter completes dot-commands and dialect names.
func newDotCompleter() *readline.PrefixCompleter {
	dialects := make([]readline.PrefixCompleterInterface, 0, len(dialect.List()))
	for _, name := range dialect.List() {
		dialects = append(dialects, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".dialect", dialects...),
		readline.PcItem(".tables"),
		readline.PcItem(".lineage"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
