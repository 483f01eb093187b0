// Package concept defines concepts (reusable semantic labels for columns),
// their observations, and the SQLite-backed Concept Store.
package concept

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BaseType is the declared storage type of a column or concept.
type BaseType string

const (
	TypeInteger   BaseType = "integer"
	TypeDouble    BaseType = "double precision"
	TypeText      BaseType = "text"
	TypeDate      BaseType = "date"
	TypeTimestamp BaseType = "timestamp"
	TypeUnknown   BaseType = "unknown" // auto type pending confirmation
)

// NumericTypes are matched with hypothesis tests.
var NumericTypes = []BaseType{TypeInteger, TypeDouble}

// TemporalTypes get no automatic concept match.
var TemporalTypes = []BaseType{TypeDate, TypeTimestamp}

// TextTypes are matched with the text classifier.
var TextTypes = []BaseType{TypeText, TypeUnknown}

// RuleFamily selects the candidate-generation strategy for a base type.
type RuleFamily string

const (
	FamilyNumeric  RuleFamily = "numeric"
	FamilyText     RuleFamily = "text"
	FamilyTemporal RuleFamily = "temporal"
)

// Family returns the rule family for b. Anything that is neither numeric
// nor temporal is treated as text.
func (b BaseType) Family() RuleFamily {
	switch b {
	case TypeInteger, TypeDouble:
		return FamilyNumeric
	case TypeDate, TypeTimestamp:
		return FamilyTemporal
	default:
		return FamilyText
	}
}

// Types returns the base types belonging to a rule family.
func (f RuleFamily) Types() []BaseType {
	switch f {
	case FamilyNumeric:
		return NumericTypes
	case FamilyTemporal:
		return TemporalTypes
	default:
		return TextTypes
	}
}

// NormalizeBaseType maps a driver-reported column type (PostgreSQL
// information_schema, SQLite declared type) onto a BaseType.
func NormalizeBaseType(raw string) BaseType {
	t := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "integer", "int", "int2", "int4", "int8", "smallint", "bigint", "serial", "bigserial":
		return TypeInteger
	case "double precision", "double", "float", "float4", "float8", "real", "numeric", "decimal":
		return TypeDouble
	case "text", "varchar", "character varying", "char", "character", "bpchar", "string", "clob":
		return TypeText
	case "date":
		return TypeDate
	case "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz", "datetime":
		return TypeTimestamp
	default:
		return TypeUnknown
	}
}

// Concept is a reusable semantic label backed by observed data.
type Concept struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	DataType  BaseType  `json:"data_type"`
	Verified  bool      `json:"verified"`
	Narrower  string    `json:"narrower,omitempty"` // URI of a more specific concept; empty for roots
	CreatedAt time.Time `json:"created_at"`
}

// IsRoot reports whether c has no narrower relation. Only root concepts
// train the rule models.
func (c Concept) IsRoot() bool {
	return c.Narrower == ""
}

// Observation is one raw value tying a concept to a (table, column) pair.
type Observation struct {
	URI    string `json:"uri"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Binding records that a (table, column) pair is bound to a concept.
type Binding struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	URI    string `json:"uri"`
}

// URIFor derives the concept URI for a human-readable name.
func URIFor(baseURI, name string) string {
	return baseURI + url.PathEscape(strings.TrimSpace(name))
}

// NewAutoURI mints a URI from a fresh random token, for concepts the
// matcher generates on its own.
func NewAutoURI(baseURI string) string {
	return baseURI + strings.ReplaceAll(uuid.NewString(), "-", "")
}
