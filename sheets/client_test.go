package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spreadsheetJSON = `{
  "sheets": [
    {
      "properties": {"sheetId": 0, "title": "Roster"},
      "data": [
        {
          "rowData": [
            {"values": [{"formattedValue": ""}, {"formattedValue": "Team Alpha"}]},
            {"values": [{"formattedValue": "1"}]},
            {"values": [{"formattedValue": "Tank"}, {"formattedValue": "ana"}, {"formattedValue": "2500"}]}
          ]
        }
      ]
    },
    {
      "properties": {"sheetId": 444, "title": "Players"},
      "data": []
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestFetchMetadata(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(spreadsheetJSON))
	})

	titles, err := c.FetchMetadata(context.Background(), "spreadsheet-id-0001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0": "Roster", "444": "Players"}, titles)

	// Second call is served from the metadata cache.
	_, err = c.FetchMetadata(context.Background(), "spreadsheet-id-0001")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchSheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("includeGridData") == "true" {
			assert.Contains(t, r.URL.Query()["ranges"], "Roster")
		}
		w.Write([]byte(spreadsheetJSON))
	})

	data, err := c.FetchSheet(context.Background(), "spreadsheet-id-0001", "0")
	require.NoError(t, err)

	assert.Equal(t, "Roster", data.Title)
	assert.Equal(t, "0", data.GID)

	// Rows are padded to the widest row.
	assert.Equal(t, []string{"", "Team Alpha", ""}, data.Headers)
	require.Len(t, data.Data, 2)
	assert.Equal(t, []string{"1", "", ""}, data.Data[0])
	assert.Equal(t, []string{"Tank", "ana", "2500"}, data.Data[1])
}

func TestFetchSheetUnknownGID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(spreadsheetJSON))
	})

	_, err := c.FetchSheet(context.Background(), "spreadsheet-id-0001", "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrNotPublished},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.FetchMetadata(context.Background(), "spreadsheet-id-0001")
		assert.ErrorIs(t, err, tc.want)
	}
}

func TestFetchAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := c.FetchMetadata(context.Background(), "spreadsheet-id-0001")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Body)
}

func TestFetchNoAPIKey(t *testing.T) {
	c := NewClient("")
	_, err := c.FetchMetadata(context.Background(), "spreadsheet-id-0001")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFetchSheetsEmptyGIDList(t *testing.T) {
	c := NewClient("test-key")
	data, err := c.FetchSheets(context.Background(), "spreadsheet-id-0001", nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}
