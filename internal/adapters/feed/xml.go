package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/bft-labs/feedship/internal/domain"
)

// DefaultItemElement is the RSS item element name.
const DefaultItemElement = "item"

// textKey holds the character data of an element that also has attributes
// or children.
const textKey = "#text"

// NewXMLSource streams every itemElement in r as a raw record.
//
// Child elements become fields keyed by their literal qualified name, so a
// Google Merchant <g:id> is the field "g:id". A child with attributes or
// children becomes a nested map with attributes under "@name" and its text
// under "#text". Repeated children collect into a slice.
func NewXMLSource(r io.Reader, itemElement string) *Source {
	return newXMLSource(r, itemElement, nil)
}

func newXMLSource(r io.Reader, itemElement string, closer io.Closer) *Source {
	if itemElement == "" {
		itemElement = DefaultItemElement
	}
	d := xml.NewDecoder(r)
	d.Entity = xml.HTMLEntity
	return newSource(&xmlDecoder{d: d, item: itemElement}, closer)
}

type xmlDecoder struct {
	d    *xml.Decoder
	item string
}

func (x *xmlDecoder) next() (domain.RawRecord, error) {
	for {
		tok, err := x.d.RawToken()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read xml: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !x.isItem(se.Name) {
			continue
		}
		fields, _, err := x.element(se)
		if err != nil {
			return nil, err
		}
		return fields, nil
	}
}

func (x *xmlDecoder) isItem(name xml.Name) bool {
	return qualified(name) == x.item || (name.Local == x.item && !strings.Contains(x.item, ":"))
}

// element reads up to the end of start and returns its attributes and
// children as fields plus its own character data.
func (x *xmlDecoder) element(start xml.StartElement) (domain.RawRecord, string, error) {
	fields := domain.RawRecord{}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		fields["@"+qualified(a.Name)] = a.Value
	}

	var text strings.Builder
	for {
		tok, err := x.d.RawToken()
		if err == io.EOF {
			return nil, "", fmt.Errorf("read xml: element <%s>: %w", qualified(start.Name), io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, "", fmt.Errorf("read xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, childText, err := x.element(t)
			if err != nil {
				return nil, "", err
			}
			add(fields, qualified(t.Name), value(child, childText))
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return fields, text.String(), nil
		}
	}
}

// value collapses a leaf element to its trimmed text.
func value(fields domain.RawRecord, text string) any {
	text = strings.TrimSpace(text)
	if len(fields) == 0 {
		return text
	}
	if text != "" {
		fields[textKey] = text
	}
	return map[string]any(fields)
}

func add(fields domain.RawRecord, key string, v any) {
	prev, ok := fields[key]
	if !ok {
		fields[key] = v
		return
	}
	if list, ok := prev.([]any); ok {
		fields[key] = append(list, v)
		return
	}
	fields[key] = []any{prev, v}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
