package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultIPAPIURL is the free ip-api.com JSON endpoint.
const DefaultIPAPIURL = "http://ip-api.com/json/?fields=status,message,country,city"

// IPAPIProvider locates the caller's public IP using an ip-api.com compatible endpoint.
type IPAPIProvider struct {
	url    string
	client *http.Client
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// NewIPAPIProvider creates a provider querying url with the given request timeout.
func NewIPAPIProvider(url string, timeout time.Duration) *IPAPIProvider {
	if url == "" {
		url = DefaultIPAPIURL
	}
	return &IPAPIProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// LocateIP queries the endpoint and returns the reported city and country.
func (p *IPAPIProvider) LocateIP(ctx context.Context) (Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Place{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("%w: ip lookup: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("%w: ip lookup returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("%w: decode ip lookup: %v", ErrUnavailable, err)
	}
	if body.Status != "" && body.Status != "success" {
		return Place{}, fmt.Errorf("%w: ip lookup failed: %s", ErrUnavailable, body.Message)
	}

	place := Place{City: body.City, Country: body.Country}
	if place.Empty() {
		return Place{}, fmt.Errorf("%w: ip lookup returned no location", ErrUnavailable)
	}
	return place, nil
}
