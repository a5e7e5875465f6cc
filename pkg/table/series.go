package table

import (
	"fmt"
	"strconv"
)

// Kind enumerates the column types a table can hold.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Series is a single named column of homogeneously typed values.
// Exactly one of the value slices is populated, matching Kind.
// The valid mask marks which positions hold a value; a nil mask
// means every position is valid.
type Series struct {
	Name    string
	Kind    Kind
	strings []string
	ints    []int64
	floats  []float64
	bools   []bool
	valid   []bool
}

func NewStringSeries(name string, values []string, valid []bool) *Series {
	return &Series{Name: name, Kind: KindString, strings: values, valid: valid}
}

func NewIntSeries(name string, values []int64, valid []bool) *Series {
	return &Series{Name: name, Kind: KindInt64, ints: values, valid: valid}
}

func NewFloatSeries(name string, values []float64, valid []bool) *Series {
	return &Series{Name: name, Kind: KindFloat64, floats: values, valid: valid}
}

func NewBoolSeries(name string, values []bool, valid []bool) *Series {
	return &Series{Name: name, Kind: KindBool, bools: values, valid: valid}
}

// Len returns the number of positions in the series, null or not.
func (s *Series) Len() int {
	switch s.Kind {
	case KindString:
		return len(s.strings)
	case KindInt64:
		return len(s.ints)
	case KindFloat64:
		return len(s.floats)
	case KindBool:
		return len(s.bools)
	}
	return 0
}

// IsNull reports whether position i holds no value.
func (s *Series) IsNull(i int) bool {
	if s.valid == nil {
		return false
	}
	return !s.valid[i]
}

func (s *Series) StringAt(i int) string  { return s.strings[i] }
func (s *Series) IntAt(i int) int64      { return s.ints[i] }
func (s *Series) FloatAt(i int) float64  { return s.floats[i] }
func (s *Series) BoolAt(i int) bool      { return s.bools[i] }

// Render formats the value at position i for text output.
// Null positions render as the empty string.
func (s *Series) Render(i int) string {
	if s.IsNull(i) {
		return ""
	}
	switch s.Kind {
	case KindString:
		return s.strings[i]
	case KindInt64:
		return strconv.FormatInt(s.ints[i], 10)
	case KindFloat64:
		return strconv.FormatFloat(s.floats[i], 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.bools[i])
	}
	return ""
}

// Equal reports whether two series have the same name, kind, length,
// null mask, and values.
func (s *Series) Equal(o *Series) bool {
	if s.Name != o.Name || s.Kind != o.Kind || s.Len() != o.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) != o.IsNull(i) {
			return false
		}
		if s.IsNull(i) {
			continue
		}
		switch s.Kind {
		case KindString:
			if s.strings[i] != o.strings[i] {
				return false
			}
		case KindInt64:
			if s.ints[i] != o.ints[i] {
				return false
			}
		case KindFloat64:
			if s.floats[i] != o.floats[i] {
				return false
			}
		case KindBool:
			if s.bools[i] != o.bools[i] {
				return false
			}
		}
	}
	return true
}
