package relationship

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client answers relationship queries against the external relationship
// service. Results annotate replayed history and presence snapshots; the
// engine never owns relationship data.
type Client interface {
	Related(ctx context.Context, user string, other string) (bool, error)
	BulkRelated(ctx context.Context, user string, others []string) (map[string]bool, error)
}

// HTTPClient is the JSON-over-HTTP implementation of Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs an HTTPClient against the service base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Related reports whether two users are related.
func (c *HTTPClient) Related(ctx context.Context, user string, other string) (bool, error) {
	related, err := c.BulkRelated(ctx, user, []string{other})
	if err != nil {
		return false, err
	}
	return related[other], nil
}

// BulkRelated resolves relatedness of one user against many others in a
// single call. Users absent from the response read as unrelated.
func (c *HTTPClient) BulkRelated(ctx context.Context, user string, others []string) (map[string]bool, error) {
	if len(others) == 0 {
		return map[string]bool{}, nil
	}

	query := url.Values{}
	query.Set("user", user)
	query.Set("others", strings.Join(others, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/internal/relationships?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relationship service returned %d", resp.StatusCode)
	}

	var body struct {
		Related map[string]bool `json:"related"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Related == nil {
		body.Related = map[string]bool{}
	}
	return body.Related, nil
}
