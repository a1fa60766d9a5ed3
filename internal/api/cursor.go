package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cursor is an opaque resume token returned by the platform alongside each
// log batch. The wire representation is a JSON number, a JSON string, or
// null. A null (or absent) cursor means "no advancement": the client must
// keep polling from its previous position.
//
// The zero Cursor means "from the beginning" and serializes as null.
// Cursor values are compared and forwarded verbatim; the client never
// interprets their contents beyond the numeric/string distinction.
type Cursor struct {
	raw     string
	numeric bool
	valid   bool
}

// NumericCursor creates a numeric cursor, typically an epoch-like value.
func NumericCursor(v float64) Cursor {
	return Cursor{raw: strconv.FormatFloat(v, 'f', -1, 64), numeric: true, valid: true}
}

// StringCursor creates a server-opaque string cursor.
func StringCursor(s string) Cursor {
	return Cursor{raw: s, valid: true}
}

// IsZero reports whether the cursor is the initial "from the beginning" value.
func (c Cursor) IsZero() bool {
	return !c.valid
}

// String returns the textual form sent in query parameters. Empty for the
// zero cursor.
func (c Cursor) String() string {
	if !c.valid {
		return ""
	}
	return c.raw
}

// Float returns the numeric value of the cursor. ok is false for string and
// zero cursors.
func (c Cursor) Float() (v float64, ok bool) {
	if !c.valid || !c.numeric {
		return 0, false
	}
	v, err := strconv.ParseFloat(c.raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Key returns a stable identity for request coalescing. Numeric cursors are
// rounded down to the given quantum so that near-simultaneous consumers at
// slightly different positions share one request; string and zero cursors
// are used verbatim.
func (c Cursor) Key(quantum float64) string {
	if !c.valid {
		return ""
	}
	if v, ok := c.Float(); ok && quantum > 0 {
		bucket := v - math.Mod(v, quantum)
		return "n:" + strconv.FormatFloat(bucket, 'f', -1, 64)
	}
	if c.numeric {
		return "n:" + c.raw
	}
	return "s:" + c.raw
}

// MarshalJSON encodes the cursor in its wire form: null when zero, a bare
// number for numeric cursors, a quoted string otherwise.
func (c Cursor) MarshalJSON() ([]byte, error) {
	switch {
	case !c.valid:
		return []byte("null"), nil
	case c.numeric:
		return []byte(c.raw), nil
	default:
		return []byte(strconv.Quote(c.raw)), nil
	}
}

// UnmarshalJSON decodes a JSON number, string, or null. The raw token is
// preserved so numeric cursors round-trip without float formatting drift.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	token := strings.TrimSpace(string(data))
	switch {
	case token == "" || token == "null":
		*c = Cursor{}
		return nil
	case strings.HasPrefix(token, `"`):
		s, err := strconv.Unquote(token)
		if err != nil {
			return fmt.Errorf("invalid cursor string: %w", err)
		}
		*c = Cursor{raw: s, valid: true}
		return nil
	default:
		if _, err := strconv.ParseFloat(token, 64); err != nil {
			return fmt.Errorf("invalid cursor value %q: %w", token, err)
		}
		*c = Cursor{raw: token, numeric: true, valid: true}
		return nil
	}
}
