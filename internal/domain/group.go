package domain

import (
	"bytes"
	"encoding/json"
)

// Group is an ordered set of records delivered as a single sink call.
// It keeps the encoded form of every record so the payload and its size
// are always computed from the same bytes.
type Group struct {
	records  []Record
	elements [][]byte
	size     int
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{size: emptyArraySize}
}

// emptyArraySize is len("[]").
const emptyArraySize = 2

// EncodeRecord returns the canonical JSON encoding of a single record.
func EncodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Estimate returns the exact byte length of the JSON array encoding of records.
func Estimate(records []Record) (int, error) {
	size := emptyArraySize
	for i, rec := range records {
		b, err := EncodeRecord(rec)
		if err != nil {
			return 0, err
		}
		size = EncodedSize(size, i, len(b))
	}
	return size, nil
}

// EncodedSize returns the size of an array of n elements totalling size bytes
// after one more element of elemLen bytes is appended.
func EncodedSize(size, n, elemLen int) int {
	if n > 0 {
		size++ // separating comma
	}
	return size + elemLen
}

// SizeWith returns the encoded size the group would have with one more element.
func (g *Group) SizeWith(elemLen int) int {
	return EncodedSize(g.size, len(g.records), elemLen)
}

// Append adds a record and its encoding to the group.
func (g *Group) Append(rec Record, encoded []byte) {
	g.size = g.SizeWith(len(encoded))
	g.records = append(g.records, rec)
	g.elements = append(g.elements, encoded)
}

// Size returns the encoded byte size of the group.
func (g *Group) Size() int {
	return g.size
}

// Len returns the number of records in the group.
func (g *Group) Len() int {
	return len(g.records)
}

// Empty returns true if the group has no records.
func (g *Group) Empty() bool {
	return len(g.records) == 0
}

// Records returns a copy of the records in order.
func (g *Group) Records() []Record {
	return append([]Record(nil), g.records...)
}

// Payload returns the wire form of the group: a JSON array of records.
func (g *Group) Payload() []byte {
	var buf bytes.Buffer
	buf.Grow(g.size)
	buf.WriteByte('[')
	buf.Write(bytes.Join(g.elements, []byte{','}))
	buf.WriteByte(']')
	return buf.Bytes()
}
