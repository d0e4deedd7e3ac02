package generator

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"derivefuzz/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type intWidth struct {
	bits     uint
	unsigned bool
}

var exactIntTypes = map[string]intWidth{
	"TINYINT":   {bits: 8},
	"BOOL":      {bits: 8},
	"BOOLEAN":   {bits: 8},
	"INT8":      {bits: 8},
	"UINT8":     {bits: 8, unsigned: true},
	"SMALLINT":  {bits: 16},
	"INT16":     {bits: 16},
	"UINT16":    {bits: 16, unsigned: true},
	"MEDIUMINT": {bits: 24},
	"INT":       {bits: 32},
	"INTEGER":   {bits: 32},
	"INT32":     {bits: 32},
	"UINTEGER":  {bits: 32, unsigned: true},
	"UINT32":    {bits: 32, unsigned: true},
	"BIGINT":    {bits: 64},
	"INT64":     {bits: 64},
	"UBIGINT":   {bits: 64, unsigned: true},
	"UINT64":    {bits: 64, unsigned: true},
	"HUGEINT":   {bits: 128},
	"UHUGEINT":  {bits: 128, unsigned: true},
}

var prefixIntTypes = []struct {
	prefix string
	width  intWidth
}{
	{prefix: "UINT128", width: intWidth{bits: 128, unsigned: true}},
	{prefix: "INT128", width: intWidth{bits: 128}},
	{prefix: "UINT256", width: intWidth{bits: 256, unsigned: true}},
	{prefix: "INT256", width: intWidth{bits: 256}},
}

var blobTypes = map[string]struct{}{
	"TINYBLOB": {}, "BLOB": {}, "MEDIUMBLOB": {}, "LONGBLOB": {},
}

var textTypes = map[string]struct{}{
	"TINYTEXT": {}, "TEXT": {}, "MEDIUMTEXT": {}, "LONGTEXT": {}, "CLOB": {},
}

// Value produces one literal of the type descriptor typ. Composite types
// recurse with depth+1; at depth >= maxDepth the safe default 0 is returned.
// Type names match case-insensitively by exact name, prefix or substring.
func (g *Generator) Value(typ string, depth, maxDepth int) (string, error) {
	if depth >= maxDepth {
		return "0", nil
	}
	raw := strings.TrimSpace(typ)
	t := strings.ToUpper(raw)
	if t == "" {
		t, raw = "INT", "INT"
	}
	if inner, ok := unwrapModifier(raw); ok {
		return g.Value(inner, depth, maxDepth)
	}

	switch {
	case strings.HasPrefix(t, "ARRAY"):
		return g.arrayValue(raw, depth, maxDepth)
	case strings.HasPrefix(t, "TUPLE"):
		return g.tupleValue(raw, depth, maxDepth)
	case strings.HasPrefix(t, "MAP"):
		return g.mapValue(raw, depth, maxDepth)
	case t == "JSON":
		return "'" + g.jsonValue(depth, maxDepth) + "'", nil
	}

	if w, ok := intWidthOf(t); ok {
		return g.randomInt(w), nil
	}

	switch {
	case strings.Contains(t, "DECIMAL") || strings.Contains(t, "DEC") || t == "NUMERIC":
		return g.randomFloat(decimalAbsMax), nil
	case strings.Contains(t, "FLOAT") || t == "REAL":
		return g.randomFloat(floatAbsMax), nil
	case strings.HasPrefix(t, "DOUBLE"):
		return g.randomFloat(doubleAbsMax), nil
	case t == "BIT":
		return strconv.Itoa(g.Rand.Intn(2)), nil
	case strings.HasPrefix(t, "VARBINARY") || strings.HasPrefix(t, "BINARY"):
		return "0x" + g.randomString("0123456789ABCDEF", declaredLength(t)), nil
	}
	if _, ok := blobTypes[t]; ok {
		return g.quotedText(), nil
	}
	if _, ok := textTypes[t]; ok {
		return g.quotedText(), nil
	}
	switch {
	// LINESTRING and FIXEDSTRING(n) must not fall into the STRING rule.
	case isSpatial(t):
		return g.spatialValue(t)
	case strings.HasPrefix(t, "FIXEDSTRING"):
		return "'" + g.randomString(alnum, declaredLength(t)) + "'", nil
	case strings.Contains(t, "STRING"):
		return g.quotedText(), nil
	case strings.HasPrefix(t, "VARCHAR") || strings.HasPrefix(t, "CHAR"):
		return "'" + g.randomString(alnum, declaredLength(t)) + "'", nil
	case strings.HasPrefix(t, "ENUM"):
		return g.enumValue(raw)
	case t == "INET4" || t == "IPV4":
		return fmt.Sprintf("'%d.%d.%d.%d'", g.Rand.Intn(256), g.Rand.Intn(256), g.Rand.Intn(256), g.Rand.Intn(256)), nil
	case t == "INET6" || t == "IPV6":
		groups := make([]string, 8)
		for i := range groups {
			groups[i] = g.randomString("0123456789abcdef", 4)
		}
		return "'" + strings.Join(groups, ":") + "'", nil
	case t == "UUID":
		id, err := uuid.NewRandomFromReader(g.Rand)
		if err != nil {
			return "", errors.Wrap(err, "uuid literal")
		}
		return "'" + id.String() + "'", nil
	case strings.HasPrefix(t, "DATETIME"):
		return "'" + util.RandDate(g.Rand, 1900, 2100) + " " + util.RandClock(g.Rand) + "'", nil
	case strings.HasPrefix(t, "TIMESTAMP"):
		return "'" + util.RandDate(g.Rand, 1970, 2035) + " " + util.RandClock(g.Rand) + "'", nil
	case strings.HasPrefix(t, "DATE"):
		return "'" + util.RandDate(g.Rand, 1900, 2100) + "'", nil
	case strings.HasPrefix(t, "TIME"):
		return "'" + util.RandClock(g.Rand) + "'", nil
	case t == "YEAR":
		return strconv.Itoa(util.RandIntRange(g.Rand, 1901, 2100)), nil
	case t == "NULL":
		return "NULL", nil
	case strings.HasPrefix(t, "INTERVAL DAY TO SECOND"):
		return fmt.Sprintf("INTERVAL '%d %d:%d:%d' DAY TO SECOND",
			util.RandIntRange(g.Rand, -30, 30), g.Rand.Intn(24), g.Rand.Intn(60), g.Rand.Intn(60)), nil
	}
	return "", errors.Wrap(ErrUnsupportedType, raw)
}

// unwrapModifier strips ClickHouse type modifiers that do not change the
// literal syntax, such as Nullable(Int32).
func unwrapModifier(raw string) (string, bool) {
	t := strings.ToUpper(raw)
	for _, prefix := range []string{"NULLABLE(", "LOWCARDINALITY("} {
		if strings.HasPrefix(t, prefix) && strings.HasSuffix(t, ")") {
			return raw[len(prefix) : len(raw)-1], true
		}
	}
	return "", false
}

func intWidthOf(t string) (intWidth, bool) {
	unsigned := false
	if base, ok := strings.CutSuffix(t, " UNSIGNED"); ok {
		t, unsigned = strings.TrimSpace(base), true
	}
	if w, ok := exactIntTypes[t]; ok {
		w.unsigned = w.unsigned || unsigned
		return w, true
	}
	for _, p := range prefixIntTypes {
		if strings.HasPrefix(t, p.prefix) {
			w := p.width
			w.unsigned = w.unsigned || unsigned
			return w, true
		}
	}
	return intWidth{}, false
}

// randomInt draws uniformly from the two's-complement range of w.
func (g *Generator) randomInt(w intWidth) string {
	span := new(big.Int).Lsh(big.NewInt(1), w.bits)
	v := new(big.Int).Rand(g.Rand, span)
	if !w.unsigned {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), w.bits-1))
	}
	return v.String()
}

func (g *Generator) randomFloat(absMax float64) string {
	for {
		v := util.RoundFloat((g.Rand.Float64()*2-1)*absMax, FloatPlaces)
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			return util.FormatFloat(v)
		}
	}
}

func (g *Generator) randomString(charset string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(charset[g.Rand.Intn(len(charset))])
	}
	return b.String()
}

func (g *Generator) quotedText() string {
	return "'" + g.randomString(alnum, util.RandIntRange(g.Rand, 1, TextLengthMax)) + "'"
}

// declaredLength reads the first number inside the parentheses of t.
func declaredLength(t string) int {
	args, ok := typeArgs(t)
	if !ok {
		return CharLengthDefault
	}
	first := strings.TrimSpace(splitArgs(args)[0])
	n, err := strconv.Atoi(first)
	if err != nil || n < 0 {
		return CharLengthDefault
	}
	return n
}

func (g *Generator) enumValue(raw string) (string, error) {
	args, ok := typeArgs(raw)
	if !ok {
		return "", errors.Wrap(ErrUnsupportedType, raw)
	}
	var members []string
	for _, item := range splitArgs(args) {
		item = strings.Trim(strings.TrimSpace(item), "'")
		if item != "" {
			members = append(members, item)
		}
	}
	if len(members) == 0 {
		return "", errors.Wrap(ErrUnsupportedType, raw)
	}
	return "'" + util.Pick(g.Rand, members) + "'", nil
}

func (g *Generator) arrayValue(raw string, depth, maxDepth int) (string, error) {
	inner, ok := typeArgs(raw)
	if !ok {
		return "[]", nil
	}
	n := util.RandIntRange(g.Rand, 1, CompositeElemsMax)
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := g.Value(inner, depth+1, maxDepth)
		if err != nil {
			return "", err
		}
		values = append(values, v)
	}
	return "[" + strings.Join(values, ", ") + "]", nil
}

func (g *Generator) tupleValue(raw string, depth, maxDepth int) (string, error) {
	args, ok := typeArgs(raw)
	if !ok {
		return "(0, 0)", nil
	}
	var values []string
	for _, typ := range splitArgs(args) {
		v, err := g.Value(strings.TrimSpace(typ), depth+1, maxDepth)
		if err != nil {
			return "", err
		}
		values = append(values, v)
	}
	return "(" + strings.Join(values, ", ") + ")", nil
}

func (g *Generator) mapValue(raw string, depth, maxDepth int) (string, error) {
	args, ok := typeArgs(raw)
	if !ok {
		return "{}", nil
	}
	parts := splitArgs(args)
	if len(parts) != 2 {
		return "{}", nil
	}
	keyType, valueType := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	n := util.RandIntRange(g.Rand, 1, CompositeElemsMax)
	pairs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k, err := g.Value(keyType, depth+1, maxDepth)
		if err != nil {
			return "", err
		}
		v, err := g.Value(valueType, depth+1, maxDepth)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, k+": "+v)
	}
	return "{" + strings.Join(pairs, ", ") + "}", nil
}

// jsonValue renders a random JSON document. Arrays are not started one
// level above the limit and the limit itself yields "value".
func (g *Generator) jsonValue(depth, maxDepth int) string {
	if depth >= maxDepth {
		return `"value"`
	}
	kinds := 4
	if depth == maxDepth-1 {
		kinds = 3
	}
	switch g.Rand.Intn(kinds) {
	case 0:
		return `"` + g.randomString(alnum, 1) + `"`
	case 1:
		return strconv.Itoa(util.RandIntRange(g.Rand, -JSONNumberAbsMax, JSONNumberAbsMax))
	case 2:
		if g.Rand.Intn(2) == 0 {
			return "true"
		}
		return "false"
	default:
		n := g.Rand.Intn(JSONArrayElemsMax + 1)
		items := make([]string, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, g.jsonValue(depth+1, maxDepth))
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
}

// typeArgs returns the text between the first '(' and the last ')'.
func typeArgs(t string) (string, bool) {
	open := strings.IndexByte(t, '(')
	end := strings.LastIndexByte(t, ')')
	if open < 0 || end <= open {
		return "", false
	}
	return t[open+1 : end], true
}

// splitArgs splits a parameter list on commas that are not nested inside
// parentheses or quotes.
func splitArgs(s string) []string {
	var (
		parts   []string
		level   int
		quoted  bool
		current strings.Builder
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'':
			quoted = !quoted
		case quoted:
		case ch == '(':
			level++
		case ch == ')':
			level--
		case ch == ',' && level == 0:
			parts = append(parts, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}
	return append(parts, current.String())
}
