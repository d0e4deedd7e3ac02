package repro

import "strings"

type lexState int

const (
	lexCode lexState = iota
	lexQuoted
	lexLineComment
	lexBlockComment
)

// splitter cuts a script into statements on top-level semicolons. Comments
// stay attached to the statement that follows them.
type splitter struct {
	// mysql enables '#' comments, backslash escapes and backtick
	// identifiers. In PostgreSQL '#' is an operator and a backslash is an
	// ordinary character in standard strings.
	mysql bool

	state lexState
	quote byte
	buf   strings.Builder
	out   []string
}

func splitSQL(input string, mysql bool) []string {
	s := &splitter{mysql: mysql}
	for i := 0; i < len(input); i++ {
		i += s.step(input, i)
	}
	s.flush()
	return s.out
}

// step consumes input[i] and reports how many extra bytes it swallowed.
func (s *splitter) step(input string, i int) int {
	ch := input[i]
	next := byte(0)
	if i+1 < len(input) {
		next = input[i+1]
	}
	switch s.state {
	case lexLineComment:
		s.buf.WriteByte(ch)
		if ch == '\n' {
			s.state = lexCode
		}
		return 0
	case lexBlockComment:
		if ch == '*' && next == '/' {
			s.buf.WriteString("*/")
			s.state = lexCode
			return 1
		}
		s.buf.WriteByte(ch)
		return 0
	case lexQuoted:
		s.buf.WriteByte(ch)
		if ch == '\\' && s.mysql && s.quote != '`' && next != 0 {
			s.buf.WriteByte(next)
			return 1
		}
		if ch == s.quote {
			s.state = lexCode
		}
		return 0
	}

	switch {
	case ch == '-' && next == '-' && (i == 0 || isSpace(input[i-1])):
		s.buf.WriteString("--")
		s.state = lexLineComment
		return 1
	case ch == '#' && s.mysql:
		s.state = lexLineComment
	case ch == '/' && next == '*':
		s.buf.WriteString("/*")
		s.state = lexBlockComment
		return 1
	case ch == '\'' || ch == '"' || (ch == '`' && s.mysql):
		s.state, s.quote = lexQuoted, ch
	case ch == ';':
		s.flush()
		return 0
	}
	s.buf.WriteByte(ch)
	return 0
}

func (s *splitter) flush() {
	if stmt := strings.TrimSpace(s.buf.String()); stmt != "" {
		s.out = append(s.out, stmt)
	}
	s.buf.Reset()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
