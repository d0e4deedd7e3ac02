package result

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"derivefuzz/internal/util"

	"github.com/lib/pq"
)

// NullText is how SQL NULL is rendered in a row.
const NullText = "None"

var binaryTypes = map[string]struct{}{
	"BINARY":     {},
	"VARBINARY":  {},
	"BLOB":       {},
	"TINYBLOB":   {},
	"MEDIUMBLOB": {},
	"LONGBLOB":   {},
	"BYTEA":      {},
	"BIT":        {},
	"GEOMETRY":   {},
}

// NormalizeValue renders one driver value as comparable text. dbType is the
// driver-reported column type name and may be empty.
func NormalizeValue(v any, dbType string) string {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	switch val := v.(type) {
	case nil:
		return NullText
	case []byte:
		if isBinaryType(t) {
			return hex.EncodeToString(val)
		}
		return normalizeText(string(val), t)
	case string:
		return normalizeText(val, t)
	case float64:
		return normalizeFloat(val)
	case float32:
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(val), 'g', -1, 32), 64)
		if err != nil {
			f = float64(val)
		}
		return normalizeFloat(f)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case time.Time:
		return formatTime(val, t)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, NormalizeValue(item, ""))
		}
		return sortedList(items)
	case map[string]any:
		return canonicalJSON(val)
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, item := range val {
			converted[fmt.Sprint(k)] = item
		}
		return canonicalJSON(converted)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func isBinaryType(t string) bool {
	_, ok := binaryTypes[t]
	return ok
}

func isArrayType(t string) bool {
	return strings.HasPrefix(t, "_") || strings.HasSuffix(t, "[]") || strings.HasPrefix(t, "ARRAY")
}

func isJSONType(t string) bool {
	return t == "JSON" || t == "JSONB"
}

func isApproxOrExactNumeric(t string) bool {
	switch {
	case strings.HasPrefix(t, "DECIMAL"), strings.HasPrefix(t, "NUMERIC"):
		return true
	case strings.HasPrefix(t, "FLOAT"), strings.HasPrefix(t, "DOUBLE"), t == "REAL":
		return true
	}
	return false
}

func normalizeText(s string, t string) string {
	switch {
	case isArrayType(t):
		return normalizeArrayText(s)
	case isJSONType(t):
		return canonicalJSONText(s)
	case isApproxOrExactNumeric(t):
		return normalizeNumericText(s)
	}
	return s
}

// normalizeNumericText drops an all-zero fraction unless the text uses an
// exponent, so 10.000 and 10 compare equal.
func normalizeNumericText(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "eE") {
		return s
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	if strings.Trim(s[dot+1:], "0") != "" {
		return s
	}
	intPart := s[:dot]
	switch intPart {
	case "", "-", "+", "-0", "+0":
		return "0"
	}
	return strings.TrimPrefix(intPart, "+")
}

func normalizeFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return util.FormatFloat(v)
	}
	text := util.FormatFloat(v)
	if v == math.Trunc(v) && !strings.ContainsAny(text, "eE") {
		if v == 0 {
			return "0"
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return text
}

func formatTime(v time.Time, t string) string {
	if t == "DATE" {
		return v.Format("2006-01-02")
	}
	out := v.Format("2006-01-02 15:04:05")
	if ns := v.Nanosecond(); ns != 0 {
		out += fmt.Sprintf(".%06d", ns/1000)
	}
	if strings.HasSuffix(t, "TZ") || strings.Contains(t, "TIME ZONE") {
		out += v.Format("-07:00")
	}
	return out
}

func normalizeArrayText(s string) string {
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
		var arr pq.StringArray
		if err := arr.Scan([]byte(trimmed)); err != nil {
			return s
		}
		return sortedList([]string(arr))
	case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
		return sortedList(splitTopLevel(trimmed[1 : len(trimmed)-1]))
	}
	return s
}

func sortedList(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return "[" + strings.Join(sorted, ", ") + "]"
}

// splitTopLevel splits on commas that are not nested in brackets or quotes.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func canonicalJSONText(s string) string {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	return canonicalJSON(v)
}

func canonicalJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
