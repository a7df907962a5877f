package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/topics"
)

// HTTPClient is the HTTP telemetry variant: telemetry is POSTed to
// {base_url}/{device_id} and the threshold is polled from a separate URL
// returning a bare numeric string.
type HTTPClient struct {
	client       *http.Client
	baseURL      string
	thresholdURL string
	deviceID     string
}

// NewHTTPClient creates an HTTP variant client
func NewHTTPClient(baseURL, thresholdURL, deviceID string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		client:       &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		thresholdURL: thresholdURL,
		deviceID:     deviceID,
	}
}

// PostTelemetry sends one telemetry message. Failures are non-fatal; the
// next cycle retries.
func (c *HTTPClient) PostTelemetry(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error serializing telemetry: %w", err)
	}

	url := topics.BuildTelemetryURL(c.baseURL, c.deviceID)
	resp, err := c.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error posting telemetry to %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned %d", resp.StatusCode)
	}

	logger.LogTrace("Telemetry posted to %s", url)
	return nil
}

// FetchThreshold polls the threshold endpoint. The response body is a bare
// numeric string; only positive values are usable, everything else returns
// an error and leaves the caller's threshold untouched.
func (c *HTTPClient) FetchThreshold() (float64, error) {
	if c.thresholdURL == "" {
		return 0, fmt.Errorf("no threshold url configured")
	}

	resp, err := c.client.Get(c.thresholdURL)
	if err != nil {
		return 0, fmt.Errorf("error fetching threshold: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("threshold endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("error reading threshold body: %w", err)
	}

	return ParseThreshold(string(body))
}

// ParseThreshold parses a bare numeric threshold string, accepting only
// finite positive values
func ParseThreshold(body string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(body), 64)
	if err != nil {
		return 0, fmt.Errorf("threshold is not numeric: %w", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, fmt.Errorf("threshold %v is not a positive number", value)
	}
	return value, nil
}
