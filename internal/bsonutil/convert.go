// Package bsonutil provides tolerant conversions for BSON values decoded into
// bson.M. Command results and $group rows report numbers as int32, int64,
// float64 or Decimal128 depending on magnitude and server version; these
// helpers never panic on an unexpected type.
package bsonutil

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToString converts a BSON value to string. Returns "" for nil.
// ObjectIDs are rendered as hex, other values with fmt.
func ToString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case primitive.ObjectID:
		return s.Hex()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt64 converts a BSON numeric value to int64. Returns 0 for nil or
// unrecognised types.
func ToInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case primitive.Decimal128:
		return int64(decimalToFloat(n))
	default:
		return 0
	}
}

// ToFloat64 converts a BSON numeric value to float64. Returns 0 for nil or
// unrecognised types.
func ToFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case primitive.Decimal128:
		return decimalToFloat(n)
	default:
		return 0
	}
}

// ToBool converts a BSON value to bool. Returns false for nil or non-bool types.
func ToBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Int64Field extracts an int64 from a document by key.
func Int64Field(doc bson.M, key string) int64 {
	return ToInt64(doc[key])
}

// Float64Field extracts a float64 from a document by key.
func Float64Field(doc bson.M, key string) float64 {
	return ToFloat64(doc[key])
}

func decimalToFloat(d primitive.Decimal128) float64 {
	f, err := strconv.ParseFloat(d.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
