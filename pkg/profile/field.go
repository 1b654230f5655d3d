// Package profile infers the type and value distribution of table columns.
package profile

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// MaxEnum is the largest number of unique values to track before not trying to
// interpret the field as an enum.
const MaxEnum = 20

// Field accumulates the values seen in one column. Add returns the field to
// use from then on, which widens to a StringField when a value no longer
// fits the inferred type.
type Field interface {
	Add(v any) Field
	String() string
}

// EmptyField represents a column which is never filled in.
type EmptyField struct{}

// Add turns the EmptyField into an appropriate field based on the passed type.
// Text that parses as a number or boolean is treated as one.
func (nf *EmptyField) Add(v any) Field {
	switch o := v.(type) {
	case nil:
		return nf
	case bool:
		return (&BoolField{}).Add(o)
	case int64, float64:
		return newNumberField().Add(o)
	case string:
		if _, ok := parseNumber(o); ok {
			return newNumberField().Add(o)
		}
		if _, ok := parseBool(o); ok {
			return (&BoolField{}).Add(o)
		}
		return newStringField().Add(o)
	default:
		return newStringField().Add(v)
	}
}

func (nf *EmptyField) String() string {
	return "empty"
}

// BoolField indicates the column only ever holds true or false.
type BoolField struct {
	True  int
	False int
}

func (f *BoolField) Add(v any) Field {
	var b, ok bool
	switch o := v.(type) {
	case nil:
		return f
	case bool:
		b, ok = o, true
	case string:
		b, ok = parseBool(o)
	}
	if !ok {
		return f.widen().Add(v)
	}

	if b {
		f.True++
	} else {
		f.False++
	}
	return f
}

func (f *BoolField) widen() *StringField {
	s := newStringField()
	if f.True > 0 {
		s.Seen["true"] = f.True
	}
	if f.False > 0 {
		s.Seen["false"] = f.False
	}
	return s
}

func (f *BoolField) String() string {
	return fmt.Sprintf("true:%d;false:%d", f.True, f.False)
}

// A NumberField only holds numbers. Keeps track of the properties of the
// numbers passed in to determine the types of numbers used.
type NumberField struct {
	// Integral tracks if all instances of this field are integers.
	Integral bool

	// Min and Max allow determining whether the number is unsigned, or, for
	// integers, the smallest type which can hold all seen values.
	Min, Max float64

	// Count is the number of non-null values added.
	Count int

	// Seen tracks the unique numbers passed to this field.
	// Stops collecting values after it contains more than MaxEnum entries.
	Seen map[float64]int
}

func newNumberField() *NumberField {
	return &NumberField{Seen: make(map[float64]int)}
}

func (f *NumberField) Add(v any) Field {
	var n float64
	var ok bool
	switch o := v.(type) {
	case nil:
		return f
	case int64:
		n, ok = float64(o), true
	case float64:
		n, ok = o, true
	case string:
		n, ok = parseNumber(o)
	}
	if !ok {
		return f.widen().Add(v)
	}

	if f.Count > 0 {
		f.Integral = f.Integral && isIntegral(n)
		f.Min = min(f.Min, n)
		f.Max = max(f.Max, n)
	} else {
		f.Integral = isIntegral(n)
		f.Min = n
		f.Max = n
	}
	f.Count++

	if len(f.Seen) <= MaxEnum {
		f.Seen[n]++
	}
	return f
}

func (f *NumberField) widen() *StringField {
	s := newStringField()
	for k, v := range f.Seen {
		s.Seen[strconv.FormatFloat(k, 'f', -1, 64)] = v
	}
	s.Overflow = len(f.Seen) > MaxEnum
	return s
}

func isIntegral(f float64) bool {
	return math.Round(f) == f
}

func (f *NumberField) String() string {
	result := strings.Builder{}
	if f.Integral {
		if f.Min < 0 {
			if f.Max <= math.MaxInt8 && f.Min >= math.MinInt8 {
				result.WriteString("int8")
			} else if f.Max <= math.MaxInt16 && f.Min >= math.MinInt16 {
				result.WriteString("int16")
			} else if f.Max <= math.MaxInt32 && f.Min >= math.MinInt32 {
				result.WriteString("int32")
			} else {
				result.WriteString("int64")
			}
		} else {
			if f.Max <= math.MaxUint8 {
				result.WriteString("uint8")
			} else if f.Max <= math.MaxUint16 {
				result.WriteString("uint16")
			} else if f.Max <= math.MaxUint32 {
				result.WriteString("uint32")
			} else {
				result.WriteString("uint64")
			}
		}
		result.WriteString(fmt.Sprintf(";%d;%d", int64(f.Min), int64(f.Max)))
	} else {
		result.WriteString(fmt.Sprintf("float64;%f;%f", f.Min, f.Max))
	}

	if len(f.Seen) <= MaxEnum {
		result.WriteString(";")
		for _, k := range slices.Sorted(maps.Keys(f.Seen)) {
			if f.Integral {
				result.WriteString(fmt.Sprintf("%d:%d;", int64(k), f.Seen[k]))
			} else {
				result.WriteString(fmt.Sprintf("%f:%d;", k, f.Seen[k]))
			}
		}
	}

	return result.String()
}

// A StringField holds arbitrary text.
type StringField struct {
	// Seen attempts to determine if the field is actually an enum with a small
	// number of unique values.
	Seen map[string]int

	// Overflow is set once more than MaxEnum unique values were seen.
	Overflow bool
}

func newStringField() *StringField {
	return &StringField{Seen: make(map[string]int)}
}

func (f *StringField) Add(v any) Field {
	if v == nil {
		return f
	}

	var s string
	switch o := v.(type) {
	case string:
		s = o
	case []string:
		s = "[" + strings.Join(o, ", ") + "]"
	default:
		s = fmt.Sprint(o)
	}

	if _, ok := f.Seen[s]; ok || len(f.Seen) < MaxEnum {
		f.Seen[s]++
	} else {
		f.Overflow = true
	}
	return f
}

func (f *StringField) String() string {
	if f.Overflow {
		return "string;"
	}

	result := strings.Builder{}
	result.WriteString(fmt.Sprintf("enum;%d;", len(f.Seen)))
	for _, k := range slices.Sorted(maps.Keys(f.Seen)) {
		result.WriteString(fmt.Sprintf("%s:%d;", k, f.Seen[k]))
	}
	return result.String()
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
