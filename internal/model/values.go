package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

// IsFinite reports whether f is neither NaN nor infinite.
func (f Float) IsFinite() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarshalJSON writes f the way encoding/json writes a float64, or null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.IsFinite() {
		return []byte("null"), nil
	}
	v := float64(f)
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(make([]byte, 0, 24), v, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return b, nil
}

// UnmarshalJSON accepts a number or null (decoded as NaN).
func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// CustomerID identifies a customer. Integer literals encode as JSON numbers,
// everything else as strings.
type CustomerID string

// NewCustomerID trims raw and rewrites integer literals to canonical form, so
// "07" and "+7" both become "7".
func NewCustomerID(raw string) CustomerID {
	return CustomerID(strings.TrimSpace(raw)).Canonical()
}

// Canonical returns c with integer literals in canonical decimal form.
// Other identifiers are returned unchanged.
func (c CustomerID) Canonical() CustomerID {
	if n, ok := c.Int(); ok {
		return CustomerID(strconv.FormatInt(n, 10))
	}
	return c
}

// Int returns the identifier as an integer when it is an integer literal.
func (c CustomerID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(c), 10, 64)
	return n, err == nil
}

// MarshalJSON implements json.Marshaler.
func (c CustomerID) MarshalJSON() ([]byte, error) {
	if n, ok := c.Int(); ok {
		return strconv.AppendInt(nil, n, 10), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (c *CustomerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CustomerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CustomerID(n.String())
	return nil
}

// CompareCustomerIDs orders integer identifiers numerically before all
// non-integer identifiers, which are ordered lexicographically.
func CompareCustomerIDs(a, b CustomerID) int {
	an, aok := a.Int()
	bn, bok := b.Int()
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(string(a), string(b))
}
