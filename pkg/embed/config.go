package embed

import "net/http"

type config struct {
	model      string
	dim        int
	baseURL    string
	httpClient *http.Client
}

// Option configures an embedder.
type Option func(*config)

func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithDimension sets the desired output vector dimensionality.
func WithDimension(dim int) Option {
	return func(c *config) { c.dim = dim }
}

func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}
