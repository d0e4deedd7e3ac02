package generator

import (
	"math/rand"
	"time"

	"derivefuzz/internal/dialect"

	"github.com/pkg/errors"
)

// Generation failures. They are expected during random draws and are
// handled by abandoning the current draw.
var (
	ErrUnsupportedType       = errors.New("unsupported data type")
	ErrUnsupportedForDialect = errors.New("unsupported type for dialect")
	ErrArity                 = errors.New("invalid operation type and op combination")
	ErrNoColumns             = errors.New("expression needs at least one column")
)

// Generator creates literals, expressions and statements for one target.
// It is not safe for concurrent use; each worker owns its own Generator.
type Generator struct {
	Rand     *rand.Rand
	Target   dialect.Target
	Seed     int64
	maxDepth int
}

// New creates a Generator whose random stream is fully determined by seed.
// A zero seed picks one from the clock.
func New(target dialect.Target, seed int64, maxDepth int) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDepth <= 0 {
		maxDepth = ValueMaxDepthDefault
	}
	return &Generator{
		Rand:     rand.New(rand.NewSource(seed)),
		Target:   target,
		Seed:     seed,
		maxDepth: maxDepth,
	}
}

// MaxDepth is the nesting limit used for composite literals.
func (g *Generator) MaxDepth() int {
	return g.maxDepth
}

// Literal generates one literal of typ at the top nesting level.
func (g *Generator) Literal(typ string) (string, error) {
	return g.Value(typ, 0, g.maxDepth)
}
