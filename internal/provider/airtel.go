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

// KeyAirtel is the provider key served by the Airtel adapter.
const KeyAirtel order.ProviderKey = "airtel"

// airtelVocab maps Airtel's status strings onto the canonical vocabulary.
var airtelVocab = map[string]order.Status{
	"pending":    order.StatusPending,
	"processing": order.StatusProcessing,
	"queued":     order.StatusWaiting,
	"success":    order.StatusCompleted,
	"successful": order.StatusCompleted,
	"failed":     order.StatusFailed,
	"refunded":   order.StatusRefunded,
}

// Airtel checks top-up status against the Airtel dealer API:
// GET {base}/v1/topups/{ref}/status with a bearer token, status at
// JSON path data.status.
type Airtel struct {
	client  *http.Client
	baseURL string
	token   string
}

var _ provider.Checker = (*Airtel)(nil)

// NewAirtel builds the Airtel adapter.
func NewAirtel(baseURL, token string, timeout time.Duration) *Airtel {
	return &Airtel{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		token:   token,
	}
}

// Key implements provider.Checker.
func (a *Airtel) Key() order.ProviderKey { return KeyAirtel }

// CheckStatus implements provider.Checker.
func (a *Airtel) CheckStatus(ctx context.Context, ref string) (order.Status, error) {
	u, err := url.JoinPath(a.baseURL, "v1", "topups", ref, "status")
	if err != nil {
		return "", errors.Wrap(err, "build url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "airtel request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &provider.StatusError{Provider: KeyAirtel, Code: resp.StatusCode, Message: resp.Status}
	}

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	raw, err := extractAirtelStatus(body)
	if err != nil {
		return "", errors.Wrap(err, "parse airtel response")
	}

	return provider.NormalizeStatus(airtelVocab, raw), nil
}

// extractAirtelStatus pulls data.status out of the response body.
func extractAirtelStatus(body []byte) (string, error) {
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
	}); err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("missing data.status field")
	}
	return status, nil
}
