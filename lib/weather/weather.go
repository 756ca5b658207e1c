// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package weather fetches current conditions for the venue
// coordinates from an Open-Meteo-compatible forecast API. The
// dashboard polls it on a fixed interval; there is no push feed.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public Open-Meteo endpoint. No key required.
const DefaultBaseURL = "https://api.open-meteo.com"

// Reading is one observation of current conditions at the venue.
type Reading struct {
	// TemperatureCelsius is the current air temperature.
	TemperatureCelsius float64

	// WindSpeedKMH is the current wind speed in km/h.
	WindSpeedKMH float64

	// Code is the WMO weather interpretation code.
	Code int

	// Condition is the human label for Code ("Clear", "Rain", ...).
	Condition string
}

// ClientConfig holds configuration for a weather Client.
type ClientConfig struct {
	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string

	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client fetches current weather. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a weather client.
func NewClient(config ClientConfig) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// currentWeatherResponse is the decode target for the forecast
// endpoint's current_weather block.
type currentWeatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Current fetches the current conditions at the given coordinates.
func (c *Client) Current(ctx context.Context, latitude, longitude float64) (Reading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(latitude, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(longitude, 'f', 4, 64))
	values.Set("current_weather", "true")
	requestURL := c.baseURL + "/v1/forecast?" + values.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: fetching conditions: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return Reading{}, fmt.Errorf("weather: reading response body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather: HTTP %d: %s",
			response.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded currentWeatherResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Reading{}, fmt.Errorf("weather: decoding response: %w", err)
	}

	return Reading{
		TemperatureCelsius: decoded.CurrentWeather.Temperature,
		WindSpeedKMH:       decoded.CurrentWeather.WindSpeed,
		Code:               decoded.CurrentWeather.WeatherCode,
		Condition:          Condition(decoded.CurrentWeather.WeatherCode),
	}, nil
}

// Condition maps a WMO weather interpretation code to a short label.
// Unknown codes fall back to "Unknown" rather than failing: a weather
// panel with a vague label beats one that errors out.
func Condition(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
