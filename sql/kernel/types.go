// Package kernel implements the columnar execution primitives: typed
// arrays, record batches, and the hash/sort/gather/compress building
// blocks the executor composes into operators.
package kernel

import "fmt"

// Type identifies the primitive SQL type carried by an array or scalar.
type Type uint8

const (
	Invalid Type = iota
	Bool
	Int64
	Float64
	Decimal
	Date
	Timestamp
	String
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "BOOL"
	case Int64:
		return "INT64"
	case Float64:
		return "FLOAT64"
	case Decimal:
		return "DECIMAL"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case String:
		return "STRING"
	default:
		return "INVALID"
	}
}

// GoString renders t as used in panic messages for programmer errors.
func (t Type) GoString() string {
	return fmt.Sprintf("kernel.%s", t.String())
}
