// Package cache stores fetched prayer timings and IP geolocation on disk so
// repeated invocations on the same day make no network calls.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/geo"
)

const (
	dayCacheFile   = "timings_%s.json" // keyed by hash
	monthCacheFile = "hijri_%s.json"   // keyed by hash
	geoCacheFile   = "geolocation.json"
	geoTTL         = 24 * time.Hour
)

// Cache provides file-based caching for prayer times and geolocation data.
type Cache struct {
	dir string
}

// DayEntry stores one day's API data along with the key it was fetched for.
type DayEntry struct {
	Date   string   `json:"date"` // YYYY-MM-DD
	Method int      `json:"method"`
	School int      `json:"school"`
	Data   api.Data `json:"data"`
}

// MonthEntry stores every day of one Hijri month.
type MonthEntry struct {
	HijriYear  int        `json:"hijri_year"`
	HijriMonth int        `json:"hijri_month"`
	Method     int        `json:"method"`
	School     int        `json:"school"`
	Days       []api.Data `json:"days"`
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Place    geo.Place `json:"place"`
	CachedAt time.Time `json:"cached_at"`
}

// New creates a Cache rooted at the given directory.
// If dir is empty, it defaults to ~/.cache/namaz/.
func New(dir string) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache", "namaz")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// cacheKey builds a deterministic hash from the parameters that affect
// prayer times, so different locations/methods/schools get separate files.
func cacheKey(period string, q api.Query) string {
	raw := fmt.Sprintf("%s|%.6f|%.6f|%s|%s|%d|%d",
		period, q.Latitude, q.Longitude, q.City, q.Country, q.Method, q.School)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8]) // 16 hex chars is plenty for uniqueness
}

// LoadDay returns cached data for date and q, or nil if missing or stale.
func (c *Cache) LoadDay(date time.Time, q api.Query) *DayEntry {
	dateStr := date.Format("2006-01-02")
	path := filepath.Join(c.dir, fmt.Sprintf(dayCacheFile, cacheKey(dateStr, q)))

	var entry DayEntry
	if !readJSON(path, &entry) {
		return nil
	}
	// A file for a previous day is useless even if the hash collided.
	if entry.Date != dateStr || entry.Method != q.Method || entry.School != q.School {
		return nil
	}
	return &entry
}

// SaveDay writes one day's API data to the cache.
func (c *Cache) SaveDay(date time.Time, q api.Query, data api.Data) error {
	dateStr := date.Format("2006-01-02")
	path := filepath.Join(c.dir, fmt.Sprintf(dayCacheFile, cacheKey(dateStr, q)))

	return writeJSON(path, DayEntry{
		Date:   dateStr,
		Method: q.Method,
		School: q.School,
		Data:   data,
	})
}

// LoadHijriMonth returns a cached Hijri month, or nil.
func (c *Cache) LoadHijriMonth(hijriYear, hijriMonth int, q api.Query) *MonthEntry {
	period := fmt.Sprintf("AH%04d-%02d", hijriYear, hijriMonth)
	path := filepath.Join(c.dir, fmt.Sprintf(monthCacheFile, cacheKey(period, q)))

	var entry MonthEntry
	if !readJSON(path, &entry) {
		return nil
	}
	if entry.HijriYear != hijriYear || entry.HijriMonth != hijriMonth || len(entry.Days) == 0 {
		return nil
	}
	return &entry
}

// SaveHijriMonth writes a Hijri month of timings to the cache.
func (c *Cache) SaveHijriMonth(hijriYear, hijriMonth int, q api.Query, days []api.Data) error {
	period := fmt.Sprintf("AH%04d-%02d", hijriYear, hijriMonth)
	path := filepath.Join(c.dir, fmt.Sprintf(monthCacheFile, cacheKey(period, q)))

	return writeJSON(path, MonthEntry{
		HijriYear:  hijriYear,
		HijriMonth: hijriMonth,
		Method:     q.Method,
		School:     q.School,
		Days:       days,
	})
}

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (c *Cache) LoadGeo() *geo.Place {
	var entry GeoCacheEntry
	if !readJSON(filepath.Join(c.dir, geoCacheFile), &entry) {
		return nil
	}
	if time.Since(entry.CachedAt) > geoTTL {
		return nil
	}
	return &entry.Place
}

// SaveGeo writes a geolocation result to the cache.
func (c *Cache) SaveGeo(p *geo.Place) error {
	return writeJSON(filepath.Join(c.dir, geoCacheFile), GeoCacheEntry{
		Place:    *p,
		CachedAt: time.Now(),
	})
}

func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
