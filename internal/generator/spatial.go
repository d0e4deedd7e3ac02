package generator

import (
	"strings"

	"derivefuzz/internal/dialect"
	"derivefuzz/internal/util"

	"github.com/pkg/errors"
)

var spatialTypes = map[string]struct{}{
	"POINT": {}, "GEOMETRY": {}, "LINESTRING": {}, "POLYGON": {}, "MULTIPOINT": {},
	"MULTILINESTRING": {}, "MULTIPOLYGON": {}, "GEOMETRYCOLLECTION": {}, "GEOMCOLLECTION": {}, "RING": {},
}

func isSpatial(t string) bool {
	_, ok := spatialTypes[t]
	return ok
}

type point struct{ x, y string }

func (g *Generator) randomPoint() point {
	return point{
		x: util.FormatFloat(util.RoundFloat((g.Rand.Float64()*2-1)*spatialXAbsMax, FloatPlaces)),
		y: util.FormatFloat(util.RoundFloat((g.Rand.Float64()*2-1)*spatialYAbsMax, FloatPlaces)),
	}
}

func (g *Generator) randomPoints(n int) []point {
	out := make([]point, n)
	for i := range out {
		out[i] = g.randomPoint()
	}
	return out
}

// closedRing returns four random points followed by the first one again.
func (g *Generator) closedRing() []point {
	pts := g.randomPoints(4)
	return append(pts, pts[0])
}

func wktPoints(pts []point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = p.x + " " + p.y
	}
	return strings.Join(parts, ", ")
}

func tuplePoints(pts []point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = "(" + p.x + ", " + p.y + ")"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// spatialValue renders one geometry literal in the target's spelling.
func (g *Generator) spatialValue(t string) (string, error) {
	style := g.Target.SpatialStyle()
	if style == dialect.SpatialNone {
		return "", errors.Wrapf(ErrUnsupportedForDialect, "%s on %s", t, g.Target)
	}
	if style == dialect.SpatialTuple {
		return g.spatialTuple(t)
	}
	wkt, ok := g.spatialWKT(t)
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedForDialect, "%s on %s", t, g.Target)
	}
	if style == dialect.SpatialWKTFunc {
		return "ST_GeomFromText('" + wkt + "')", nil
	}
	return wkt, nil
}

func (g *Generator) spatialWKT(t string) (string, bool) {
	switch t {
	case "POINT", "GEOMETRY":
		return "POINT(" + wktPoints(g.randomPoints(1)) + ")", true
	case "LINESTRING":
		return "LINESTRING(" + wktPoints(g.randomPoints(3)) + ")", true
	case "POLYGON":
		return "POLYGON((" + wktPoints(g.closedRing()) + "))", true
	case "MULTIPOINT":
		return "MULTIPOINT(" + wktPoints(g.randomPoints(util.RandIntRange(g.Rand, 2, 3))) + ")", true
	case "MULTILINESTRING":
		return "MULTILINESTRING((" + wktPoints(g.randomPoints(3)) + "), (" + wktPoints(g.randomPoints(3)) + "))", true
	case "MULTIPOLYGON":
		return "MULTIPOLYGON(((" + wktPoints(g.closedRing()) + ")), ((" + wktPoints(g.closedRing()) + ")))", true
	case "GEOMETRYCOLLECTION", "GEOMCOLLECTION":
		return t + "(POINT(" + wktPoints(g.randomPoints(1)) + "), LINESTRING(" + wktPoints(g.randomPoints(3)) + "))", true
	}
	return "", false
}

// spatialTuple renders ClickHouse geo literals: Point is a tuple, Ring and
// LineString are arrays of points, Polygon nests rings.
func (g *Generator) spatialTuple(t string) (string, error) {
	switch t {
	case "POINT", "GEOMETRY":
		p := g.randomPoint()
		return "(" + p.x + ", " + p.y + ")", nil
	case "LINESTRING":
		return tuplePoints(g.randomPoints(3)), nil
	case "RING":
		return tuplePoints(g.closedRing()), nil
	case "POLYGON":
		return "[" + tuplePoints(g.closedRing()) + "]", nil
	case "MULTILINESTRING":
		return "[" + tuplePoints(g.randomPoints(3)) + ", " + tuplePoints(g.randomPoints(3)) + "]", nil
	case "MULTIPOLYGON":
		return "[[" + tuplePoints(g.closedRing()) + "], [" + tuplePoints(g.closedRing()) + "]]", nil
	}
	return "", errors.Wrapf(ErrUnsupportedForDialect, "%s on %s", t, g.Target)
}
