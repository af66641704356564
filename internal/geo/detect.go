// Package geo resolves where the user is: IP-based detection, forward and
// reverse geocoding, and map links for the surrounding area.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Place is a geographic position with whatever naming the provider returned.
type Place struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	Country     string  `json:"country,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Timezone   string  `json:"timezone"`
}

const defaultDetectURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,regionName,country,timezone"

// Detector determines the user's location from their public IP address via
// ip-api.com, a free service that requires no API key.
type Detector struct {
	httpClient *http.Client
	// URL is exported for testing with httptest.
	URL string
}

// NewDetector returns a Detector; a nil hc uses a 5s timeout client.
func NewDetector(hc *http.Client) *Detector {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Detector{httpClient: hc, URL: defaultDetectURL}
}

// Detect asks ip-api.com where the caller's public IP is.
func (d *Detector) Detect(ctx context.Context) (*Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geolocation request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	return &Place{
		Latitude:  result.Lat,
		Longitude: result.Lon,
		City:      result.City,
		Region:    result.RegionName,
		Country:   result.Country,
		Timezone:  result.Timezone,
	}, nil
}
