package generator

// Generator tuning constants. Percentages unless noted.

const (
	// ValueMaxDepthDefault bounds nesting of ARRAY/TUPLE/MAP/JSON literals.
	ValueMaxDepthDefault = 3
	// CharLengthDefault is used when a char or binary type has no length.
	CharLengthDefault = 10
	// TextLengthMax caps random TEXT/BLOB payloads.
	TextLengthMax = 255
	// CompositeElemsMax caps elements in array and map literals.
	CompositeElemsMax = 2
	// JSONArrayElemsMax caps elements of a JSON array node.
	JSONArrayElemsMax = 2
	// JSONNumberAbsMax bounds JSON number leaves.
	JSONNumberAbsMax = 100
	// FloatPlaces is the rounding applied to float literals.
	FloatPlaces = 6
)

const (
	decimalAbsMax = 1e10
	floatAbsMax   = 1e38
	doubleAbsMax  = 1e308
)

const (
	// SingleConstantProb is the chance a CONSTANT leaf is a single literal.
	SingleConstantProb = 60
	// ExprConstantProb is the chance a CONSTANT leaf is a literal expression;
	// the remainder renders NULL.
	ExprConstantProb = 20
	// ExprConstantArgsMax caps literals in a literal expression.
	ExprConstantArgsMax = 2
)

const (
	// ShapeEnumValuesMin and ShapeEnumValuesMax bound ENUM member counts.
	ShapeEnumValuesMin = 2
	ShapeEnumValuesMax = 5
	// ShapeLengthMin and ShapeLengthMax bound lengths given to bare char
	// and binary column types.
	ShapeLengthMin = 1
	ShapeLengthMax = 30
)

const (
	spatialXAbsMax = 180
	spatialYAbsMax = 90
)
