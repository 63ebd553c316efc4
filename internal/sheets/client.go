// Package sheets provides a minimal Google Sheets client for the sync
// engine: append-only writes to named regions, full-region reads, and
// preview-region rewrites. Auth is a service-account JWT; calls that
// mutate the spreadsheet go through a circuit breaker so a flapping
// Sheets API fails fast instead of hammering the quota.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL   = "https://sheets.googleapis.com/v4"
	spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"

	breakerOpenAfter = 3
	breakerTimeout   = 2 * time.Minute
)

// ErrRegionUnavailable is returned when the circuit breaker is open and
// calls are being rejected without reaching the API.
var ErrRegionUnavailable = errors.New("sheets: destination unavailable (circuit open)")

// APIError wraps a Sheets API failure with its HTTP status and body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to one spreadsheet. Regions are addressed by worksheet
// title; every operation covers the whole worksheet range.
type Client struct {
	baseURL       string
	spreadsheetID string
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker
	logger        *slog.Logger
}

// NewClient builds a Client authenticated with the service-account key
// file at credentialsPath.
func NewClient(ctx context.Context, spreadsheetID, credentialsPath string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	keyJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("sheets: reading service account key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(keyJSON, spreadsheetScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parsing service account key: %w", err)
	}

	return newClientWithHTTP(spreadsheetID, conf.Client(ctx), logger), nil
}

// newClientWithHTTP wires a Client around an already-authenticated
// *http.Client. Split out so tests can inject an httptest server.
func newClientWithHTTP(spreadsheetID string, httpClient *http.Client, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sheets",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerOpenAfter
		},
	})

	return &Client{
		baseURL:       defaultBaseURL,
		spreadsheetID: spreadsheetID,
		httpClient:    httpClient,
		breaker:       cb,
		logger:        logger,
	}
}

// --- Values API wire types ---

type valueRange struct {
	Values [][]string `json:"values"`
}

type appendResponse struct {
	Updates struct {
		UpdatedRows int `json:"updatedRows"`
	} `json:"updates"`
}

type getResponse struct {
	Values [][]string `json:"values"`
}

// Append adds rows to the bottom of the named region. Strictly additive;
// existing rows are never touched. Returns the number of rows the API
// reports as written.
func (c *Client) Append(ctx context.Context, region string, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	path := fmt.Sprintf("/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.spreadsheetID, regionRange(region))

	body, err := json.Marshal(valueRange{Values: rows})
	if err != nil {
		return 0, fmt.Errorf("sheets: encoding append body: %w", err)
	}

	var appended int

	err = c.execute(func() error {
		data, doErr := c.do(ctx, http.MethodPost, path, body)
		if doErr != nil {
			return doErr
		}

		var ar appendResponse
		if jsonErr := json.Unmarshal(data, &ar); jsonErr != nil {
			return fmt.Errorf("sheets: decoding append response: %w", jsonErr)
		}

		appended = ar.Updates.UpdatedRows

		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("appended rows to region",
		slog.String("region", region),
		slog.Int("rows", appended),
	)

	return appended, nil
}

// Clear wipes all values in the named region. The engine only ever calls
// this on preview regions; production regions are append-only.
func (c *Client) Clear(ctx context.Context, region string) error {
	path := fmt.Sprintf("/spreadsheets/%s/values/%s:clear", c.spreadsheetID, regionRange(region))

	err := c.execute(func() error {
		_, doErr := c.do(ctx, http.MethodPost, path, []byte("{}"))
		return doErr
	})
	if err != nil {
		return err
	}

	c.logger.Info("cleared region", slog.String("region", region))

	return nil
}

// ReadAll returns every row currently in the named region, including the
// header row if present.
func (c *Client) ReadAll(ctx context.Context, region string) ([][]string, error) {
	path := fmt.Sprintf("/spreadsheets/%s/values/%s", c.spreadsheetID, regionRange(region))

	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var gr getResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("sheets: decoding values response: %w", err)
	}

	return gr.Values, nil
}

// execute runs fn through the circuit breaker, translating open-state
// rejections into ErrRegionUnavailable.
func (c *Client) execute(fn func() error) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrRegionUnavailable, err)
	}

	return err
}

// do performs one HTTP request and returns the response body, mapping
// non-2xx responses to APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheets: reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	return data, nil
}

// regionRange converts a worksheet title into a quoted, URL-escaped A1
// range covering the whole sheet.
func regionRange(region string) string {
	return url.PathEscape("'" + region + "'")
}
