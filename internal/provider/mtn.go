package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	"github.com/xenking/topup-reconciler/internal/domain/provider"
)

// KeyMTN is the provider key served by the MTN adapter.
const KeyMTN order.ProviderKey = "mtn"

// mtnVocab maps MTN's status strings onto the canonical vocabulary.
var mtnVocab = map[string]order.Status{
	"pending":     order.StatusPending,
	"in_progress": order.StatusProcessing,
	"submitted":   order.StatusWaiting,
	"delivered":   order.StatusCompleted,
	"failed":      order.StatusFailed,
	"reversed":    order.StatusRefunded,
}

// MTN checks top-up status against the MTN reseller API:
// GET {base}/api/v2/orders/{ref} with an X-API-Key header, status at
// JSON path data.order.status.
type MTN struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

var _ provider.Checker = (*MTN)(nil)

// NewMTN builds the MTN adapter.
func NewMTN(baseURL, apiKey string, timeout time.Duration) *MTN {
	return &MTN{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Key implements provider.Checker.
func (m *MTN) Key() order.ProviderKey { return KeyMTN }

// CheckStatus implements provider.Checker.
func (m *MTN) CheckStatus(ctx context.Context, ref string) (order.Status, error) {
	u, err := url.JoinPath(m.baseURL, "api", "v2", "orders", ref)
	if err != nil {
		return "", errors.Wrap(err, "build url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("X-API-Key", m.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "mtn request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &provider.StatusError{Provider: KeyMTN, Code: resp.StatusCode, Message: resp.Status}
	}

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	raw, err := extractMTNStatus(body)
	if err != nil {
		return "", errors.Wrap(err, "parse mtn response")
	}

	return provider.NormalizeStatus(mtnVocab, raw), nil
}

// extractMTNStatus pulls data.order.status out of the response body.
func extractMTNStatus(body []byte) (string, error) {
	var (
		status string
		found  bool
	)
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "data" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "order" {
				return d.Skip()
			}
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "status" {
					return d.Skip()
				}
				s, err := d.Str()
				if err != nil {
					return err
				}
				status, found = s, true
				return nil
			})
		})
	}); err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("missing data.order.status field")
	}
	return status, nil
}
