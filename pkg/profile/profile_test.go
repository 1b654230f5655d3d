package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

func TestColumns(t *testing.T) {
	table := tables.New([]string{"FY", "ACTIVITY", "SUBPROJECT_ID", "FLAG", "flagged", "COST"},
		[]any{"2020", "R01", nil, "true", []string{"cancer", "therapy"}, "10.5"},
		[]any{"2021", "R21", nil, "false", []string{"cancer"}, int64(-3)},
		[]any{"2021", "R01", nil, "TRUE", []string{}, nil},
	)
	fields := make(map[string]Field)

	Columns(table, fields)

	var sb strings.Builder
	require.NoError(t, Write(&sb, fields))
	assert.Equal(t, strings.Join([]string{
		"ACTIVITY;enum;2;R01:2;R21:1;",
		"COST;float64;-3.000000;10.500000;-3.000000:1;10.500000:1;",
		"FLAG;true:2;false:1",
		"FY;uint16;2020;2021;2020:1;2021:2;",
		"SUBPROJECT_ID;empty",
		"flagged;empty",
		"flagged[];enum;2;cancer:2;therapy:1;",
	}, "\n")+"\n", sb.String())
}

func TestField_Widens(t *testing.T) {
	var f Field = &EmptyField{}
	for _, v := range []any{"1", "2", "2", "n/a"} {
		f = f.Add(v)
	}

	require.IsType(t, &StringField{}, f)
	assert.Equal(t, "enum;3;1:1;2:2;n/a:1;", f.String())
}

func TestField_BoolWidens(t *testing.T) {
	var f Field = &EmptyField{}
	for _, v := range []any{"true", true, "maybe"} {
		f = f.Add(v)
	}

	assert.Equal(t, "enum;2;maybe:1;true:2;", f.String())
}

func TestStringField_Overflow(t *testing.T) {
	var f Field = &EmptyField{}
	for i := 0; i <= MaxEnum; i++ {
		f = f.Add(strings.Repeat("x", i+1))
	}

	assert.Equal(t, "string;", f.String())
}

func TestNumberField_Signed(t *testing.T) {
	var f Field = &EmptyField{}
	for _, v := range []any{int64(-200), int64(5)} {
		f = f.Add(v)
	}

	assert.Equal(t, "int16;-200;5;-200:1;5:1;", f.String())
}
