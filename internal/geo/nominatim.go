package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies namaz to Nominatim, whose usage policy
	// rejects anonymous clients.
	DefaultUserAgent = "namaz/1.0 (+https://github.com/smokyabdulrahman/namaz)"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrNotFound is returned by Reverse when nothing is near the coordinates.
var ErrNotFound = errors.New("no place found")

// ErrUpstream wraps transport failures and non-200 answers from Nominatim.
var ErrUpstream = errors.New("geocoder unavailable")

// nominatimPlace is one jsonv2 result.
type nominatimPlace struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

func (p nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}

	a := p.Address
	return Place{
		Latitude:    lat,
		Longitude:   lon,
		City:        firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		Region:      firstNonEmpty(a.State, a.County),
		Country:     a.Country,
		DisplayName: p.DisplayName,
	}, nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

// Geocoder searches places by name and names places by coordinates using
// Nominatim. Calls are limited to one per second across the process.
type Geocoder struct {
	httpClient *http.Client
	limiter    *RateLimiter
	// BaseURL is exported for testing with httptest.
	BaseURL   string
	UserAgent string
}

// NewGeocoder returns a Geocoder; a nil hc uses a 10s timeout client.
func NewGeocoder(hc *http.Client) *Geocoder {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{
		httpClient: hc,
		limiter:    NewRateLimiter(1),
		BaseURL:    defaultNominatimURL,
		UserAgent:  DefaultUserAgent,
	}
}

// Search returns up to limit places matching query.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := g.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			return nil, fmt.Errorf("geocoder result: %w", err)
		}
		places = append(places, p)
	}
	return places, nil
}

// Reverse names the place at lat/lon.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("format", "jsonv2")

	var raw nominatimPlace
	if err := g.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, raw.Error)
	}

	p, err := raw.toPlace()
	if err != nil {
		return nil, fmt.Errorf("geocoder result: %w", err)
	}
	return &p, nil
}

func (g *Geocoder) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrUpstream, err)
	}
	return nil
}

// NearbyMosquesURL returns a map search for mosques around lat/lon.
func NearbyMosquesURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/mosques/@%s,%s,15z",
		strconv.FormatFloat(lat, 'f', 6, 64),
		strconv.FormatFloat(lon, 'f', 6, 64))
}
