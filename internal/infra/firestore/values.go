package firestore

import (
	"strconv"
	"time"
)

// Document is the wire representation of a stored document.
type Document struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields,omitempty"`
	CreateTime string           `json:"createTime,omitempty"`
	UpdateTime string           `json:"updateTime,omitempty"`
}

// Value is the tagged-union field encoding used on the wire. Exactly
// one member is set.
type Value struct {
	StringValue    *string  `json:"stringValue,omitempty"`
	DoubleValue    *float64 `json:"doubleValue,omitempty"`
	IntegerValue   *string  `json:"integerValue,omitempty"`
	BooleanValue   *bool    `json:"booleanValue,omitempty"`
	TimestampValue *string  `json:"timestampValue,omitempty"`
}

func String(s string) Value {
	return Value{StringValue: &s}
}

func Double(f float64) Value {
	return Value{DoubleValue: &f}
}

// GetString returns a string field, empty when absent or mistyped.
func (d *Document) GetString(field string) string {
	if v, ok := d.Fields[field]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

// GetDouble returns a numeric field. A missing field defaults to zero;
// integer-encoded numbers are accepted.
func (d *Document) GetDouble(field string) float64 {
	v, ok := d.Fields[field]
	if !ok {
		return 0
	}
	if v.DoubleValue != nil {
		return *v.DoubleValue
	}
	if v.IntegerValue != nil {
		if n, err := strconv.ParseFloat(*v.IntegerValue, 64); err == nil {
			return n
		}
	}
	return 0
}

// GetTime returns a timestamp field, zero time when absent or unparsable.
func (d *Document) GetTime(field string) time.Time {
	if v, ok := d.Fields[field]; ok && v.TimestampValue != nil {
		if t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ID returns the document id (the last segment of the resource name).
func (d *Document) ID() string {
	return DocID(d.Name)
}
