package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bft-labs/feedship/internal/domain"
)

// NewJSONLSource streams one JSON object per line (or any whitespace-separated
// sequence of objects) from r.
func NewJSONLSource(r io.Reader) *Source {
	return newJSONLSource(r, nil)
}

func newJSONLSource(r io.Reader, closer io.Closer) *Source {
	d := json.NewDecoder(r)
	d.UseNumber()
	return newSource(&jsonlDecoder{d: d}, closer)
}

type jsonlDecoder struct {
	d     *json.Decoder
	index int
}

func (j *jsonlDecoder) next() (domain.RawRecord, error) {
	var rec domain.RawRecord
	err := j.d.Decode(&rec)
	if err == io.EOF {
		return nil, io.EOF
	}
	j.index++
	if err != nil {
		return nil, fmt.Errorf("decode record %d: %w", j.index, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode record %d: not an object", j.index)
	}
	return rec, nil
}
