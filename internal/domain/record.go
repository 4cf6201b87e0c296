package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is an untyped field map produced by a record source.
type RawRecord map[string]any

// Record is a batchable product entry.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Field lookup order. Namespaced keys win over bare ones.
var (
	idKeys          = []string{"g:id", "id"}
	titleKeys       = []string{"title", "g:title"}
	descriptionKeys = []string{"g:description", "description", "summary"}
)

// textKeys are the keys under which a text-holder map keeps its character data.
var textKeys = []string{"#text", "_text", "text", "value"}

// ExtractRecord builds a Record from a raw field map and reports whether it is
// batchable. A record without an id or title returns ErrMissingField.
func ExtractRecord(raw RawRecord) (Record, error) {
	rec := Record{
		ID:          lookup(raw, idKeys),
		Title:       lookup(raw, titleKeys),
		Description: lookup(raw, descriptionKeys),
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

// Validate returns ErrMissingField when ID or Title is blank.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: id", ErrMissingField)
	case strings.TrimSpace(r.Title) == "":
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	return nil
}

// lookup returns the first non-empty trimmed text found under keys.
func lookup(raw RawRecord, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		if s := strings.TrimSpace(textOf(v)); s != "" {
			return s
		}
	}
	return ""
}

// textOf unwraps a field value into its text content.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, k := range textKeys {
			if inner, ok := t[k]; ok {
				return textOf(inner)
			}
		}
		return ""
	case RawRecord:
		return textOf(map[string]any(t))
	case []any:
		// repeated elements: first non-empty wins
		for _, e := range t {
			if s := strings.TrimSpace(textOf(e)); s != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
