package processor

import (
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDanmuInfoWithSpaces(t *testing.T) {
	f, err := ParseDanmuInfo("12.34, 1 , 25, 16777215, 1609459200, 0, user123, 987654")
	require.NoError(t, err)

	assert.Equal(t, DanmuFields{
		Time:      12.34,
		Mode:      1,
		FontSize:  25,
		Color:     16777215,
		Timestamp: 1609459200,
		Pool:      0,
		SenderID:  "user123",
		RowID:     987654,
	}, f)
}

func TestParseDanmuInfoStripsAllWhitespace(t *testing.T) {
	f, err := ParseDanmuInfo("\t3.5,\n4,18, 255 ,1609459200,1,ab CD9,42\r\n")
	require.NoError(t, err)
	assert.Equal(t, 3.5, f.Time)
	assert.Equal(t, 4, f.Mode)
	assert.Equal(t, "abCD9", f.SenderID)
	assert.Equal(t, int64(42), f.RowID)
}

func TestParseDanmuInfoIgnoresTrailingParts(t *testing.T) {
	f, err := ParseDanmuInfo("1,1,25,0,1609459200,0,u,7,extra,,more")
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.RowID)
}

func TestParseDanmuInfoFailures(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  error
	}{
		{"nil", nil, ErrMissingInput},
		{"number", 12.5, ErrMissingInput},
		{"na element", series.New([]string{"NaN"}, series.String, "x").Elem(0), ErrMissingInput},
		{"int element", series.New([]int{3}, series.Int, "x").Elem(0), ErrMissingInput},
		{"too few parts", "12.3,1,25", ErrMalformedRecord},
		{"empty", "", ErrMalformedRecord},
		{"text time", "abc,1,25,0,1609459200,0,u,1", ErrMalformedRecord},
		{"float mode", "1.0,1.5,25,0,1609459200,0,u,1", ErrMalformedRecord},
		{"overflow", "1,1,25,0,99999999999999999999,0,u,1", ErrMalformedRecord},
		{"empty row id", "1,1,25,0,1609459200,0,u,", ErrMalformedRecord},
		{"nan time", "nan,1,25,0,1609459200,0,u,1", ErrMalformedRecord},
		{"inf time", "inf,1,25,0,1609459200,0,u,1", ErrMalformedRecord},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseDanmuInfo(tc.input)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, DanmuFields{}, f)
		})
	}
}

func TestParseDanmuInfoStringElement(t *testing.T) {
	e := series.New([]string{"0,5,64,0,1609459200,2,abc,3"}, series.String, "danmu_infos").Elem(0)
	f, err := ParseDanmuInfo(e)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Mode)
	assert.Equal(t, 64, f.FontSize)
	assert.Equal(t, 2, f.Pool)
}
