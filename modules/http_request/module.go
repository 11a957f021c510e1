package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client performs the requests. Nil means http.DefaultClient.
	Client *http.Client
}

// Input defines the arguments for the http_request task.
type Input struct {
	URL    string            `cty:"url"`
	Method string            `cty:"method"`
	Body   string            `cty:"body"`
	Header map[string]string `cty:"header"`
}

// Output is the response of a request.
type Output struct {
	StatusCode int    `cty:"status_code"`
	Body       string `cty:"body"`
}

// OnRunHttpRequest performs a single HTTP request. Any response, including
// non-2xx, is a successful run; transport failures are errors.
func (m *Module) OnRunHttpRequest(ctx context.Context, input *Input) (*Output, error) {
	method := input.Method
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", input.URL)

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range input.Header {
		req.Header.Set(k, v)
	}

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Output{StatusCode: resp.StatusCode, Body: string(bodyBytes)}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunHttpRequest", &registry.Handler{
		NewInput: func() any { return new(Input) },
		Fn:       m.OnRunHttpRequest,
	})
}
