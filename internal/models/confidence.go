package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type confidenceKind int

const (
	confidenceNull confidenceKind = iota
	confidenceNumber
	confidenceText
)

var hundred = decimal.NewFromInt(100)

// Confidence is a classifier confidence as sent by a backend. The /scans
// contract sends a probability in [0,1], the legacy contract an already
// scaled percentage, and some responses carry it as a string or omit it.
type Confidence struct {
	kind  confidenceKind
	value float64
	text  string
}

// NewConfidence wraps a numeric confidence
func NewConfidence(v float64) Confidence {
	return Confidence{kind: confidenceNumber, value: v}
}

// TextConfidence wraps a confidence the backend sent as a string
func TextConfidence(s string) Confidence {
	return Confidence{kind: confidenceText, text: s}
}

// Float returns the numeric value, if the confidence is numeric
func (c Confidence) Float() (float64, bool) {
	return c.value, c.kind == confidenceNumber
}

// IsNull reports whether the backend sent no confidence at all
func (c Confidence) IsNull() bool {
	return c.kind == confidenceNull
}

// Display formats the confidence for the user. Fractional probabilities
// become a percentage rounded to one decimal place; anything else is shown
// unchanged.
func (c Confidence) Display() string {
	switch c.kind {
	case confidenceNumber:
		if c.value >= 0 && c.value <= 1 {
			return decimal.NewFromFloat(c.value).Mul(hundred).StringFixed(1)
		}
		return strconv.FormatFloat(c.value, 'f', -1, 64)
	case confidenceText:
		return c.text
	default:
		return ""
	}
}

func (c Confidence) String() string {
	return c.Display()
}

// MarshalJSON implements json.Marshaler
func (c Confidence) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case confidenceNumber:
		return []byte(strconv.FormatFloat(c.value, 'f', -1, 64)), nil
	case confidenceText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Confidence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*c = Confidence{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding confidence: %w", err)
		}
		*c = TextConfidence(s)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("decoding confidence %q: %w", data, err)
		}
		*c = NewConfidence(v)
	}
	return nil
}
