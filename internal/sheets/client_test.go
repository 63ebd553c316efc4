package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func newTestSheetClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := newClientWithHTTP("sheet-1", server.Client(), testLogger(t))
	c.baseURL = server.URL

	return c
}

func TestAppend_SendsRowsAndParsesCount(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	var gotBody valueRange

	c := newTestSheetClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		fmt.Fprint(w, `{"updates": {"updatedRows": 2}}`)
	})

	rows := [][]string{{"a", "b"}, {"c", "d"}}

	n, err := c.Append(context.Background(), "Customer Orders", rows)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Contains(t, gotPath, "/spreadsheets/sheet-1/values/")
	assert.Contains(t, gotPath, ":append")
	assert.Contains(t, gotQuery, "valueInputOption=USER_ENTERED")
	assert.Contains(t, gotQuery, "insertDataOption=INSERT_ROWS")
	assert.Equal(t, rows, gotBody.Values)
}

func TestAppend_EmptyRowsIsNoop(t *testing.T) {
	t.Parallel()

	var calls int

	c := newTestSheetClient(t, func(http.ResponseWriter, *http.Request) {
		calls++
	})

	n, err := c.Append(context.Background(), "Customer Orders", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, calls)
}

func TestClear_PostsToClearEndpoint(t *testing.T) {
	t.Parallel()

	var gotPath, gotMethod string

	c := newTestSheetClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method

		fmt.Fprint(w, `{}`)
	})

	require.NoError(t, c.Clear(context.Background(), "TEST Customer Orders"))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Contains(t, gotPath, ":clear")
}

func TestReadAll_ReturnsValues(t *testing.T) {
	t.Parallel()

	c := newTestSheetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"values": [["OrderID", "Status"], ["WEB101", "New"]]}`)
	})

	rows, err := c.ReadAll(context.Background(), "Customer Orders")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"WEB101", "New"}, rows[1])
}

func TestReadAll_EmptyRegion(t *testing.T) {
	t.Parallel()

	c := newTestSheetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	rows, err := c.ReadAll(context.Background(), "Customer Orders")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAppend_APIErrorSurfacesStatus(t *testing.T) {
	t.Parallel()

	c := newTestSheetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Append(context.Background(), "Customer Orders", [][]string{{"a"}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	var calls int

	c := newTestSheetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "backend error", http.StatusInternalServerError)
	})

	ctx := context.Background()
	rows := [][]string{{"a"}}

	for i := 0; i < breakerOpenAfter; i++ {
		_, err := c.Append(ctx, "Customer Orders", rows)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRegionUnavailable, "call %d should reach the API", i)
	}

	assert.Equal(t, breakerOpenAfter, calls)

	// Breaker is now open: the API is no longer reached.
	_, err := c.Append(ctx, "Customer Orders", rows)
	require.ErrorIs(t, err, ErrRegionUnavailable)
	assert.Equal(t, breakerOpenAfter, calls)
}

func TestRegionRange_QuotesAndEscapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'Sheet1'", regionRange("Sheet1"))
	assert.Equal(t, "'Customer%20Orders'", regionRange("Customer Orders"))
}
