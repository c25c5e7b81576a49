// Package provider contains the concrete HTTP status adapters, one per
// external network provider. Each adapter owns its endpoint shape, its
// authentication header, and the JSON path its status lives at.
package provider

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBytes caps provider response bodies. Status payloads are tiny;
// anything larger is a misbehaving endpoint.
const maxResponseBytes = 1 << 20

// newHTTPClient builds the client shared by all adapters: instrumented
// transport and a hard per-call timeout so a stalled provider converts into
// an adapter failure instead of wedging a batch.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// readBody drains and returns the response body, bounded by maxResponseBytes.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}
