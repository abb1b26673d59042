package engine

import (
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lychee-technology/sqlsandbox"
)

// decodeRow maps one driver row into a []sandbox.SqlValue, probing each
// cell's driver-level value in a fixed order: Text, Decimal (as Float),
// float64, float32, int64, int32/int16 (widened), Bool, then the dateless
// time fallbacks rendered as canonical text. A value with a shape that
// matches none of these ends the request with ErrorKindColumnDecode.
func decodeRow(fields []pgconn.FieldDescription, values []any) ([]sandbox.SqlValue, error) {
	row := make([]sandbox.SqlValue, len(values))
	for i, value := range values {
		v, err := decodeCell(fields[i].Name, fields[i].DataTypeOID, value)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func decodeCell(columnName string, oid uint32, value any) (sandbox.SqlValue, error) {
	switch typed := value.(type) {
	case nil:
		// A NULL cell matches no decode variant; like every other type
		// probe below it fails, landing on ColumnDecode.
		return sandbox.SqlValue{}, sandbox.NewColumnDecodeError(columnName)
	case string:
		return sandbox.TextValue(typed), nil
	case pgtype.Numeric:
		f, err := typed.Float64Value()
		if err != nil || !f.Valid {
			return sandbox.SqlValue{}, sandbox.NewColumnDecodeError(columnName)
		}
		return sandbox.FloatValue(f.Float64), nil
	case float64:
		return sandbox.FloatValue(typed), nil
	case float32:
		return sandbox.FloatValue(float64(typed)), nil
	case int64:
		return sandbox.IntValue(typed), nil
	case int32:
		return sandbox.IntValue(int64(typed)), nil
	case int16:
		return sandbox.IntValue(int64(typed)), nil
	case bool:
		return sandbox.BoolValue(typed), nil
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return sandbox.TextValue(typed.Format("2006-01-02")), nil
		default:
			// TimestampOID (no tz) and any other bare time.Time-backed
			// type: canonical ISO-like rendering, no zone.
			return sandbox.TextValue(typed.Format("2006-01-02 15:04:05.999999")), nil
		}
	default:
		return sandbox.SqlValue{}, sandbox.NewColumnDecodeError(columnName)
	}
}
