package feed

import (
	"fmt"
	"io"
	"os"
)

// Supported feed formats.
const (
	FormatXML   = "xml"
	FormatJSONL = "jsonl"
)

// Open opens path ("-" for stdin) as a source of the given format.
// The caller must Close the source.
func Open(path, format, itemElement string) (*Source, error) {
	var (
		r      io.Reader
		closer io.Closer
	)
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		r, closer = f, f
	}

	switch format {
	case FormatXML, "":
		return newXMLSource(r, itemElement, closer), nil
	case FormatJSONL:
		return newJSONLSource(r, closer), nil
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
}
