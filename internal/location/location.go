// Package location keeps the user's selected location and persists it under
// a single namespaced key.
package location

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/smokyabdulrahman/namaz/internal/geo"
)

// Key is the storage key the location is persisted under.
const Key = "namaz.location"

// ErrNoLocation is returned when an operation needs a location and none is selected.
var ErrNoLocation = errors.New("no location selected")

// ErrInvalidLocation wraps validation failures from Validate.
var ErrInvalidLocation = errors.New("invalid location")

// Location is a user-selected place. Every field is optional; coordinates
// are pointers so that 0,0 is distinguishable from "unknown".
type Location struct {
	City    string   `json:"city,omitempty"`
	Region  string   `json:"region,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// FromPlace converts a geocoder or IP-detection result.
func FromPlace(p geo.Place) Location {
	lat, lon := p.Latitude, p.Longitude
	return Location{
		City:    p.City,
		Region:  p.Region,
		Country: p.Country,
		Lat:     &lat,
		Lon:     &lon,
	}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Label is the most specific name available: city, region, country, or
// "Location".
func (l Location) Label() string {
	switch {
	case l.City != "":
		return l.City
	case l.Region != "":
		return l.Region
	case l.Country != "":
		return l.Country
	default:
		return "Location"
	}
}

// Coords formats the coordinates to three decimals, or "" when unknown.
func (l Location) Coords() string {
	if !l.HasCoordinates() {
		return ""
	}
	return strconv.FormatFloat(*l.Lat, 'f', 3, 64) + ", " + strconv.FormatFloat(*l.Lon, 'f', 3, 64)
}

// Validate checks that prayer times can be requested for l.
func (l Location) Validate() error {
	if (l.Lat == nil) != (l.Lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidLocation)
	}
	if l.HasCoordinates() {
		if *l.Lat < -90 || *l.Lat > 90 {
			return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidLocation, *l.Lat)
		}
		if *l.Lon < -180 || *l.Lon > 180 {
			return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidLocation, *l.Lon)
		}
		return nil
	}
	if l.City == "" || l.Country == "" {
		return fmt.Errorf("%w: need coordinates or both city and country", ErrInvalidLocation)
	}
	return nil
}

// clone returns a deep copy so callers never share the coordinate pointers.
func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.Lat != nil {
		v := *l.Lat
		c.Lat = &v
	}
	if l.Lon != nil {
		v := *l.Lon
		c.Lon = &v
	}
	return &c
}
