package ports

import "net/http"

// HTTPClient abstracts HTTP operations so sinks can be exercised against
// test servers or instrumented transports.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
