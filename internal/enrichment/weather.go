package enrichment

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

	"github.com/redis/go-redis/v9"

	"github.com/ranjitk/sensor-monitor/internal/decision"
)

// ErrUnavailable marks a failed enrichment fetch. Callers substitute
// decision.DefaultEnrichment and continue the cycle.
var ErrUnavailable = errors.New("enrichment unavailable")

// WeatherClient fetches ambient conditions for a coordinate from an
// OpenWeather-style endpoint. Responses are cached in Redis with a TTL so
// bursts of sensor messages do not hammer the API; a nil Redis client
// disables caching.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      *redis.Client
	cacheTTL   time.Duration
}

// NewWeatherClient creates a weather client. cache may be nil.
func NewWeatherClient(baseURL, apiKey string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration) *WeatherClient {
	return &WeatherClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// weatherResponse mirrors the fields we use from the API payload.
type weatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// Fetch returns ambient conditions for the coordinate. Any transport
// error, non-200 status or unparsable body yields an error wrapping
// ErrUnavailable; the pipeline degrades to defaults rather than abort.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lon float64) (*decision.Enrichment, error) {
	cacheKey := fmt.Sprintf("weather:%.4f:%.4f", lat, lon)

	if cached := c.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var parsed weatherResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := &decision.Enrichment{
		AmbientTemperature: parsed.Main.Temp,
		AmbientHumidity:    parsed.Main.Humidity,
		Precipitation:      parsed.Rain.OneHour,
	}

	c.toCache(ctx, cacheKey, result)
	return result, nil
}

// LocationFetcher binds a weather client to a fixed coordinate, matching
// the pipeline's per-cycle enrichment contract.
type LocationFetcher struct {
	client *WeatherClient
	lat    float64
	lon    float64
}

// ForLocation returns a fetcher pinned to the given coordinate.
func ForLocation(client *WeatherClient, lat, lon float64) *LocationFetcher {
	return &LocationFetcher{client: client, lat: lat, lon: lon}
}

// Fetch returns ambient conditions for the bound coordinate.
func (f *LocationFetcher) Fetch(ctx context.Context) (*decision.Enrichment, error) {
	return f.client.Fetch(ctx, f.lat, f.lon)
}

func (c *WeatherClient) fromCache(ctx context.Context, key string) *decision.Enrichment {
	if c.cache == nil {
		return nil
	}

	data, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		return nil // miss or Redis down, fall through to the API
	}

	var cached decision.Enrichment
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil
	}
	return &cached
}

func (c *WeatherClient) toCache(ctx context.Context, key string, e *decision.Enrichment) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	// Cache failures are not worth failing the fetch over.
	_ = c.cache.Set(ctx, key, data, c.cacheTTL).Err()
}
