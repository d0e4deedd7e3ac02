package oracle

import "strings"

// Substitute replaces occurrences of from with to in sql. Text inside
// single-quoted literals is left alone, and a match whose edge is an
// identifier character must not continue a longer identifier, so t0 never
// rewrites t01 and c1 never rewrites c10.
func Substitute(sql, from, to string) string {
	if from == "" {
		return sql
	}
	var (
		b      strings.Builder
		quoted bool
	)
	b.Grow(len(sql))
	fromQuotes := strings.Count(from, "'")
	for i := 0; i < len(sql); {
		if !quoted && strings.HasPrefix(sql[i:], from) && bounded(sql, i, len(from)) {
			b.WriteString(to)
			i += len(from)
			if fromQuotes%2 == 1 {
				quoted = !quoted
			}
			continue
		}
		if sql[i] == '\'' {
			quoted = !quoted
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

// SubstituteAll applies each replacement in order.
func SubstituteAll(sql string, pairs ...[2]string) string {
	for _, p := range pairs {
		sql = Substitute(sql, p[0], p[1])
	}
	return sql
}

func bounded(s string, start, n int) bool {
	if isIdentByte(s[start]) && start > 0 && isIdentByte(s[start-1]) {
		return false
	}
	end := start + n
	if isIdentByte(s[end-1]) && end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
