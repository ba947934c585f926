package ttypes

import (
	"context"
	"net/http"
	"strings"
)

// HTTPRequest is a provider call described independently of any client.
type HTTPRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// HTTPResponse is the raw result of one exchange.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single request/response exchange.
// Failures below HTTP are returned as TRANSPORT errors with a category.
type Transport interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// CredentialStore provides opaque API keys per provider.
type CredentialStore interface {
	Key(p Provider) string
	HasKey(p Provider) bool
}

// KeyPresent reports whether key counts as a usable credential.
func KeyPresent(key string) bool {
	return strings.TrimSpace(key) != ""
}

// Adapter translates synthesis requests to one provider's wire format.
type Adapter interface {
	// Provider returns the tag this adapter serves.
	Provider() Provider

	// Encode builds the HTTP call. The key has already been checked.
	Encode(req SynthesisRequest, apiKey string) (*HTTPRequest, error)

	// Decode extracts audio bytes from a successful response.
	Decode(resp *HTTPResponse) ([]byte, error)

	// Voices returns the compiled-in catalog, which may be empty.
	Voices() []Voice
}

// CatalogFetcher is implemented by adapters whose catalog comes from the network.
type CatalogFetcher interface {
	CatalogRequest(apiKey string) (*HTTPRequest, error)
	DecodeCatalog(resp *HTTPResponse) ([]Voice, error)
}

// Synthesizer turns a request into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// ArtifactStore persists files under an application-managed root.
// Directories are created on demand. The returned path is absolute.
type ArtifactStore interface {
	WriteFile(relPath string, data []byte) (string, error)
}
