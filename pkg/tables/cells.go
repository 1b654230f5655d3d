package tables

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNotInteger = errors.New("value is not an integer")

// String renders a non-null cell as text. Null renders as "".
func String(v any) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return o
	case int64:
		return strconv.FormatInt(o, 10)
	case int:
		return strconv.Itoa(o)
	case float64:
		return strconv.FormatFloat(o, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(o)
	case []string:
		return "[" + strings.Join(o, ", ") + "]"
	default:
		return fmt.Sprint(o)
	}
}

// NormalizeKey casts a cell to string, trims it and uppercases it. Null
// cells report false and never match anything.
func NormalizeKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(String(v))), true
}

// Int reads a cell as an integer. Integral floats and numeric strings are
// accepted.
func Int(v any) (int64, error) {
	switch o := v.(type) {
	case int64:
		return o, nil
	case int:
		return int64(o), nil
	case float64:
		if math.Trunc(o) != o || math.IsInf(o, 0) {
			return 0, fmt.Errorf("%w: %v", ErrNotInteger, o)
		}
		return int64(o), nil
	case string:
		s := strings.TrimSpace(o)
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return n, nil
		}
		f, errFloat := strconv.ParseFloat(s, 64)
		if errFloat != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, o)
		}
		return Int(f)
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotInteger, v)
	}
}

// EncodeKey turns cells into a comparable string such that two cell tuples
// encode equally exactly when their types and values are equal. List cells
// are encoded element by element.
func EncodeKey(values ...any) string {
	var sb strings.Builder
	for _, v := range values {
		encodeCell(&sb, v)
	}
	return sb.String()
}

func encodeCell(sb *strings.Builder, v any) {
	switch o := v.(type) {
	case nil:
		sb.WriteByte('n')
	case string:
		writeLengthPrefixed(sb, 's', o)
	case int64:
		writeLengthPrefixed(sb, 'i', strconv.FormatInt(o, 10))
	case int:
		writeLengthPrefixed(sb, 'i', strconv.Itoa(o))
	case float64:
		writeLengthPrefixed(sb, 'f', strconv.FormatFloat(o, 'g', -1, 64))
	case bool:
		if o {
			sb.WriteByte('T')
		} else {
			sb.WriteByte('F')
		}
	case []string:
		sb.WriteByte('l')
		sb.WriteString(strconv.Itoa(len(o)))
		sb.WriteByte(':')
		for _, s := range o {
			writeLengthPrefixed(sb, 's', s)
		}
	default:
		writeLengthPrefixed(sb, 'x', fmt.Sprint(o))
	}
}

func writeLengthPrefixed(sb *strings.Builder, tag byte, s string) {
	sb.WriteByte(tag)
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}
