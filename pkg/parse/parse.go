// Package parse turns a raw command line into a Line.
//
// The accepted language is a small subset of the POSIX shell: simple
// commands made of words, joined by "|" into pipelines, which are in turn
// separated by ";". A trailing "&" runs the whole line in the background.
// Words may be quoted with single or double quotes or escaped with a
// backslash; redirections "<", ">" and ">>" take one word. Everything else a
// POSIX shell understands - expansions, "&&" and "||", compound commands,
// here-documents - is rejected as a syntax error.
package parse

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Line is the result of parsing one line.
type Line struct {
	Pipelines []Pipeline
	// Whether all pipelines of the line run in the background.
	Background bool
}

// Pipeline is a non-empty sequence of commands, the output of each connected
// to the input of the next.
type Pipeline []*Command

// Command is a simple command.
type Command struct {
	// Program name followed by the arguments. May be empty when the command
	// consists only of redirections.
	Argv   []string
	Redirs []Redir
}

// RedirKind is the kind of a redirection.
type RedirKind int

// Possible values of RedirKind.
const (
	// Read stdin from the file.
	RedirInput RedirKind = iota
	// Write stdout to the file, truncating it.
	RedirOutput
	// Append stdout to the file.
	RedirAppend
)

var redirKindNames = [...]string{"<", ">", ">>"}

func (k RedirKind) String() string {
	if 0 <= k && int(k) < len(redirKindNames) {
		return redirKindNames[k]
	}
	return fmt.Sprintf("RedirKind(%d)", int(k))
}

// Redir is a redirection.
type Redir struct {
	Kind RedirKind
	Path string
}

// Error is returned by Parse when the line is not well-formed or uses an
// unsupported construct.
type Error struct {
	Message string
	// The underlying error from the POSIX shell parser, if any.
	Err error
}

func (e *Error) Error() string { return "syntax error: " + e.Message }

func (e *Error) Unwrap() error { return e.Err }

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Parse parses one line of text, which should not contain a newline. A line
// with nothing but blanks and comments parses to a Line without pipelines.
func Parse(text string) (*Line, error) {
	if strings.IndexByte(text, 0) >= 0 {
		return nil, errorf("NUL byte in line")
	}
	p := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	f, err := p.Parse(strings.NewReader(text), "")
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}

	line := &Line{}
	for i, stmt := range f.Stmts {
		if stmt.Background {
			if i != len(f.Stmts)-1 {
				return nil, errorf("& must end the line")
			}
			line.Background = true
		}
		pipeline, err := flatten(stmt)
		if err != nil {
			return nil, err
		}
		line.Pipelines = append(line.Pipelines, pipeline)
	}
	return line, nil
}

// Flattens a (possibly nested) pipe statement into a Pipeline.
func flatten(stmt *syntax.Stmt) (Pipeline, error) {
	if stmt.Negated {
		return nil, errorf("! is not supported")
	}
	if stmt.Coprocess {
		return nil, errorf("coprocesses are not supported")
	}
	switch cmd := stmt.Cmd.(type) {
	case nil:
		c, err := command(nil, stmt.Redirs)
		if err != nil {
			return nil, err
		}
		return Pipeline{c}, nil
	case *syntax.CallExpr:
		c, err := command(cmd, stmt.Redirs)
		if err != nil {
			return nil, err
		}
		return Pipeline{c}, nil
	case *syntax.BinaryCmd:
		if cmd.Op != syntax.Pipe {
			return nil, errorf("%s is not supported", cmd.Op)
		}
		if len(stmt.Redirs) > 0 {
			return nil, errorf("redirections must follow a command")
		}
		left, err := flatten(cmd.X)
		if err != nil {
			return nil, err
		}
		right, err := flatten(cmd.Y)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	default:
		return nil, errorf("unsupported command at %s", stmt.Pos())
	}
}

func command(call *syntax.CallExpr, redirs []*syntax.Redirect) (*Command, error) {
	c := &Command{}
	if call != nil {
		if len(call.Assigns) > 0 {
			return nil, errorf("variable assignments are not supported")
		}
		for _, w := range call.Args {
			s, err := word(w)
			if err != nil {
				return nil, err
			}
			c.Argv = append(c.Argv, s)
		}
	}
	for _, r := range redirs {
		if r.N != nil {
			return nil, errorf("redirections with a file descriptor are not supported")
		}
		var kind RedirKind
		switch r.Op {
		case syntax.RdrIn:
			kind = RedirInput
		case syntax.RdrOut:
			kind = RedirOutput
		case syntax.AppOut:
			kind = RedirAppend
		default:
			return nil, errorf("%s is not supported", r.Op)
		}
		path, err := word(r.Word)
		if err != nil {
			return nil, err
		}
		c.Redirs = append(c.Redirs, Redir{kind, path})
	}
	return c, nil
}

// Returns the value of a word made only of literal text, quoted or not.
func word(w *syntax.Word) (string, error) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch part := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescape(part.Value, false))
		case *syntax.SglQuoted:
			if part.Dollar {
				return "", errorf("$'...' is not supported")
			}
			sb.WriteString(part.Value)
		case *syntax.DblQuoted:
			if part.Dollar {
				return "", errorf(`$"..." is not supported`)
			}
			for _, inner := range part.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", errorf("expansions are not supported")
				}
				sb.WriteString(unescape(lit.Value, true))
			}
		default:
			return "", errorf("expansions are not supported")
		}
	}
	return sb.String(), nil
}

// Removes backslash escapes. Inside double quotes, a backslash only escapes
// one of $`"\ and is kept otherwise.
func unescape(s string, inDQ bool) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			if !inDQ || strings.IndexByte("$`\"\\", next) >= 0 {
				sb.WriteByte(next)
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
