package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// ErrMalformedResponse is returned when the API answers 200 but the body
// cannot be decoded into the expected shape.
var ErrMalformedResponse = errors.New("malformed prayer times response")

// Error describes a non-success answer from the Al Adhan API, either at the
// HTTP level or in the envelope's code field.
type Error struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *Error) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API error: code=%d status=%s", e.StatusCode, e.Status)
}

// Query selects where and how prayer times are calculated.
// Method and School of -1 leave the choice to the API.
type Query struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Method    int
	School    int
}

// ByCity reports whether the query addresses a city instead of coordinates.
func (q Query) ByCity() bool {
	return q.City != "" && q.Latitude == 0 && q.Longitude == 0
}

func (q Query) params() url.Values {
	params := url.Values{}
	if q.ByCity() {
		params.Set("city", q.City)
		params.Set("country", q.Country)
	} else {
		params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', 6, 64))
		params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', 6, 64))
	}
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}
	return params
}

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client, e.g. with an instrumented one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new API client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDay fetches a single day of timings, by city or coordinates depending on q.
func (c *Client) FetchDay(ctx context.Context, date time.Time, q Query) (*Response, error) {
	path := "timings"
	if q.ByCity() {
		path = "timingsByCity"
	}
	endpoint := fmt.Sprintf("%s/%s/%s", c.BaseURL, path, date.Format("02-01-2006"))

	var resp Response
	if err := c.doRequest(ctx, endpoint, q.params(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK {
		return nil, &Error{StatusCode: resp.Code, Status: resp.Status}
	}
	return &resp, nil
}

// FetchHijriCalendar fetches every day of the given Hijri month. Month 9 is Ramadan.
func (c *Client) FetchHijriCalendar(ctx context.Context, hijriYear, hijriMonth int, q Query) (*CalendarResponse, error) {
	path := "hijriCalendar"
	if q.ByCity() {
		path = "hijriCalendarByCity"
	}
	endpoint := fmt.Sprintf("%s/%s/%d/%d", c.BaseURL, path, hijriYear, hijriMonth)
	return c.fetchCalendar(ctx, endpoint, q)
}

func (c *Client) fetchCalendar(ctx context.Context, endpoint string, q Query) (*CalendarResponse, error) {
	var resp CalendarResponse
	if err := c.doRequest(ctx, endpoint, q.params(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK {
		return nil, &Error{StatusCode: resp.Code, Status: resp.Status}
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build API request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w: %v", ErrMalformedResponse, err)
	}

	return nil
}
