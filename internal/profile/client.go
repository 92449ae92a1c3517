package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pawhaven/chat-service/internal/domain"
)

// Client looks up display profiles from the user service. The chat layer
// only ever reads id, name and avatar; everything else about accounts is
// someone else's problem.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		http:    &http.Client{Transport: tr, Timeout: timeout},
		baseURL: baseURL,
	}
}

// Lookup fetches a profile with exponential backoff on transient failures.
func (c *Client) Lookup(ctx context.Context, userID string) (*domain.Profile, error) {
	var out domain.Profile
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/profiles/"+userID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
		switch {
		case resp.StatusCode == http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&out)
		case resp.StatusCode >= 500:
			return fmt.Errorf("profile lookup: upstream %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("profile lookup: status %d", resp.StatusCode))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return &out, nil
}
