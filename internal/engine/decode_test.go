package engine

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsNamed(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

func TestDecodeCell_ProbeOrder(t *testing.T) {
	numeric := pgtype.Numeric{}
	require.NoError(t, numeric.Scan("12.50"))

	t.Run("string decodes as Text", func(t *testing.T) {
		v, err := decodeCell("s", 0, "hello")
		require.NoError(t, err)
		s, ok := v.IsText()
		assert.True(t, ok)
		assert.Equal(t, "hello", s)
	})

	t.Run("pgtype.Numeric decodes as Float", func(t *testing.T) {
		v, err := decodeCell("n", 0, numeric)
		require.NoError(t, err)
		f, ok := v.IsFloat()
		assert.True(t, ok)
		assert.InDelta(t, 12.5, f, 1e-9)
	})

	t.Run("float64 decodes as Float", func(t *testing.T) {
		v, err := decodeCell("f", 0, float64(2.5))
		require.NoError(t, err)
		f, ok := v.IsFloat()
		assert.True(t, ok)
		assert.Equal(t, 2.5, f)
	})

	t.Run("float32 widens losslessly to Float", func(t *testing.T) {
		v, err := decodeCell("f32", 0, float32(1.5))
		require.NoError(t, err)
		f, ok := v.IsFloat()
		assert.True(t, ok)
		assert.Equal(t, 1.5, f)
	})

	t.Run("int64 decodes as Int", func(t *testing.T) {
		v, err := decodeCell("i", 0, int64(42))
		require.NoError(t, err)
		i, ok := v.IsInt()
		assert.True(t, ok)
		assert.Equal(t, int64(42), i)
	})

	t.Run("int32 widens losslessly to Int", func(t *testing.T) {
		v, err := decodeCell("i32", 0, int32(7))
		require.NoError(t, err)
		i, ok := v.IsInt()
		assert.True(t, ok)
		assert.Equal(t, int64(7), i)
	})

	t.Run("int16 widens losslessly to Int", func(t *testing.T) {
		v, err := decodeCell("i16", 0, int16(7))
		require.NoError(t, err)
		i, ok := v.IsInt()
		assert.True(t, ok)
		assert.Equal(t, int64(7), i)
	})

	t.Run("bool decodes as Bool", func(t *testing.T) {
		v, err := decodeCell("b", 0, true)
		require.NoError(t, err)
		b, ok := v.IsBool()
		assert.True(t, ok)
		assert.True(t, b)
	})

	t.Run("date-only time.Time renders as canonical date text", func(t *testing.T) {
		ts := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
		v, err := decodeCell("d", pgtype.DateOID, ts)
		require.NoError(t, err)
		s, ok := v.IsText()
		assert.True(t, ok)
		assert.Equal(t, "2024-03-07", s)
	})

	t.Run("timestamp-without-tz time.Time renders as canonical datetime text", func(t *testing.T) {
		ts := time.Date(2024, 3, 7, 13, 45, 30, 0, time.UTC)
		v, err := decodeCell("ts", pgtype.TimestampOID, ts)
		require.NoError(t, err)
		s, ok := v.IsText()
		assert.True(t, ok)
		assert.Equal(t, "2024-03-07 13:45:30", s)
	})

	t.Run("NULL cell fails with ColumnDecode", func(t *testing.T) {
		_, err := decodeCell("weird", 0, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weird")
	})

	t.Run("unsupported driver type fails with ColumnDecode", func(t *testing.T) {
		_, err := decodeCell("blob", 0, []byte{0x01, 0x02})
		require.Error(t, err)
	})

	t.Run("invalid numeric fails with ColumnDecode", func(t *testing.T) {
		invalid := pgtype.Numeric{Valid: false}
		_, err := decodeCell("n", 0, invalid)
		require.Error(t, err)
	})
}

func TestDecodeRow_MapsEachColumnIndependently(t *testing.T) {
	fields := fieldsNamed("i", "f", "s", "b")
	values := []any{int64(1), float64(2.5), "x", true}

	row, err := decodeRow(fields, values)
	require.NoError(t, err)
	require.Len(t, row, 4)

	i, ok := row[0].IsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(1), i)

	f, ok := row[1].IsFloat()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	s, ok := row[2].IsText()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	b, ok := row[3].IsBool()
	assert.True(t, ok)
	assert.True(t, b)
}

func TestDecodeRow_PropagatesColumnNameOnFailure(t *testing.T) {
	fields := fieldsNamed("ok", "bad")
	values := []any{"fine", nil}

	_, err := decodeRow(fields, values)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
