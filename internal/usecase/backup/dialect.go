package backup

import (
	"fmt"
	"strconv"
	"time"
)

// dialect covers how each backend stores update_time and casts the JSON body.
type dialect struct {
	upsert     string
	encodeTime func(time.Time) any
	decodeTime func(any) (time.Time, error)
}

var dialects = map[string]dialect{
	"sqlite3": {
		upsert: `INSERT INTO documents (collection, id, data, update_time) VALUES (?, ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, update_time = excluded.update_time`,
		encodeTime: func(t time.Time) any { return t.UnixNano() },
		decodeTime: decodeUnixNano,
	},
	"postgres": {
		upsert: `INSERT INTO documents (collection, id, data, update_time) VALUES (?, ?, CAST(? AS jsonb), ?)
			ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, update_time = EXCLUDED.update_time`,
		encodeTime: func(t time.Time) any { return t.UTC() },
		decodeTime: decodeTimestamp,
	},
}

func init() {
	dialects["sqlite"] = dialects["sqlite3"]
}

func decodeUnixNano(v any) (time.Time, error) {
	switch val := v.(type) {
	case int64:
		return time.Unix(0, val).UTC(), nil
	case []byte:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, n).UTC(), nil
	case time.Time:
		return val.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported update_time type %T", v)
	}
}

func decodeTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, val)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(val))
	default:
		return time.Time{}, fmt.Errorf("unsupported update_time type %T", v)
	}
}
