// Package result holds the normalized outcome of one executed statement and
// the equivalence relation used to detect divergence.
package result

import (
	"fmt"
	"sort"
	"strings"
)

// RowSeparator joins the normalized cells of one row.
const RowSeparator = " * "

// Kind is the outcome class of a statement.
type Kind int

// Kind values.
const (
	KindRows Kind = iota
	KindUpdate
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindUpdate:
		return "update"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is exactly one of an error, an update count or a row multiset.
// Build it with NewError, NewUpdate or NewRows and treat it as immutable.
type Result struct {
	SQL         string
	Kind        Kind
	Code        string
	Message     string
	UpdateCount int64
	// Rows holds one joined string per row, sorted.
	Rows []string
	// Cells keeps the normalized cells in driver order for catalog reads.
	Cells       [][]string
	Blacklisted bool
}

// NewError builds an error result. The result is blacklisted when the
// code or message contains any blacklist entry, ignoring case.
func NewError(sql string, code string, msg string, blacklist []string) Result {
	return Result{
		SQL:         sql,
		Kind:        KindError,
		Code:        code,
		Message:     msg,
		Blacklisted: IsBlacklisted(code+" "+msg, blacklist),
	}
}

// TimeoutCode marks a statement cancelled by the statement timeout.
const TimeoutCode = "timeout"

// NewTimeout builds the result of a statement that exceeded its timeout.
// It is always blacklisted since slowness says nothing about correctness.
func NewTimeout(sql string) Result {
	return Result{
		SQL:         sql,
		Kind:        KindError,
		Code:        TimeoutCode,
		Message:     "statement timeout exceeded",
		Blacklisted: true,
	}
}

// NewUpdate builds an affected-row count result.
func NewUpdate(sql string, n int64) Result {
	return Result{SQL: sql, Kind: KindUpdate, UpdateCount: n}
}

// NewRows builds a row result from normalized cells.
func NewRows(sql string, cells [][]string) Result {
	rows := make([]string, 0, len(cells))
	for _, row := range cells {
		rows = append(rows, strings.Join(row, RowSeparator))
	}
	sort.Strings(rows)
	return Result{SQL: sql, Kind: KindRows, Rows: rows, Cells: cells}
}

// IsBlacklisted reports whether text contains any entry of list, ignoring case.
func IsBlacklisted(text string, list []string) bool {
	if len(list) == 0 {
		return false
	}
	upper := strings.ToUpper(text)
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(item)) {
			return true
		}
	}
	return false
}

// IsError reports whether the statement failed.
func (r Result) IsError() bool {
	return r.Kind == KindError
}

// Equal is the oracle equivalence: any two errors are equal, otherwise kind,
// update count and the sorted rows must all match.
func (r Result) Equal(other Result) bool {
	if r.Kind == KindError && other.Kind == KindError {
		return true
	}
	if r.Kind != other.Kind || r.UpdateCount != other.UpdateCount || len(r.Rows) != len(other.Rows) {
		return false
	}
	for i := range r.Rows {
		if r.Rows[i] != other.Rows[i] {
			return false
		}
	}
	return true
}

// ErrorText renders the error as a single line.
func (r Result) ErrorText() string {
	if r.Kind != KindError {
		return ""
	}
	if r.Code == "" {
		return oneLine(r.Message)
	}
	return r.Code + ": " + oneLine(r.Message)
}

// FirstCell returns the first column of the first row in driver order.
func (r Result) FirstCell() (string, bool) {
	if r.Kind != KindRows || len(r.Cells) == 0 || len(r.Cells[0]) == 0 {
		return "", false
	}
	return r.Cells[0][0], true
}

// Lines renders the result as SQL comment lines for reproduction files.
func (r Result) Lines() []string {
	switch r.Kind {
	case KindError:
		return []string{fmt.Sprintf("-- error: %s, message: %s", r.Code, oneLine(r.Message))}
	case KindUpdate:
		return []string{fmt.Sprintf("-- update: %d", r.UpdateCount)}
	default:
		out := make([]string, 0, len(r.Rows)+1)
		out = append(out, fmt.Sprintf("-- result: length %d", len(r.Rows)))
		for _, row := range r.Rows {
			out = append(out, "-- "+oneLine(row))
		}
		return out
	}
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`).Replace(s)
}
