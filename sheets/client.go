// Package sheets fetches published spreadsheets through the Google
// Sheets v4 API and keeps a short-lived cache of their cell data. A
// background poller does all the fetching; request handlers only read
// the cache.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/akulinich/overdraft/layout"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	metadataTTL    = 5 * time.Minute
)

// SheetData is one sheet tab, normalized: every row padded to the same
// width, first row split off as headers.
type SheetData struct {
	SpreadsheetID string      `json:"spreadsheetId"`
	GID           string      `json:"gid"`
	Title         string      `json:"title"`
	Headers       []string    `json:"headers"`
	Data          layout.Grid `json:"data"`
}

// Grid returns the whole sheet as one grid, headers included. The
// layout decoder does not distinguish header rows from data rows.
func (s SheetData) Grid() layout.Grid {
	g := make(layout.Grid, 0, len(s.Data)+1)
	if len(s.Headers) > 0 || len(s.Data) > 0 {
		g = append(g, s.Headers)
	}
	return append(g, s.Data...)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

type Client struct {
	apiKey  string
	http    *http.Client
	baseURL string

	mu       sync.Mutex
	metadata map[string]metadataEntry
}

type metadataEntry struct {
	titles    map[string]string
	expiresAt time.Time
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  defaultBaseURL,
		metadata: make(map[string]metadataEntry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type spreadsheetDTO struct {
	Sheets []sheetDTO `json:"sheets"`
}

type sheetDTO struct {
	Properties struct {
		SheetID int64  `json:"sheetId"`
		Title   string `json:"title"`
	} `json:"properties"`
	Data []gridDataDTO `json:"data"`
}

type gridDataDTO struct {
	RowData []rowDTO `json:"rowData"`
}

type rowDTO struct {
	Values []cellDTO `json:"values"`
}

type cellDTO struct {
	FormattedValue string `json:"formattedValue"`
}

func (c *Client) get(ctx context.Context, spreadsheetID string, q url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	q.Set("key", c.apiKey)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, spreadsheetID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("google sheets http: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode == http.StatusForbidden:
		return ErrNotPublished
	case res.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case res.StatusCode < 200 || res.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// FetchMetadata returns the gid-to-title mapping of a spreadsheet.
// Results are cached for 5 minutes; tab renames are rare.
func (c *Client) FetchMetadata(ctx context.Context, spreadsheetID string) (map[string]string, error) {
	c.mu.Lock()
	if e, ok := c.metadata[spreadsheetID]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.titles, nil
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("fields", "sheets.properties(sheetId,title)")
	var dto spreadsheetDTO
	if err := c.get(ctx, spreadsheetID, q, &dto); err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(dto.Sheets))
	for _, sheet := range dto.Sheets {
		titles[strconv.FormatInt(sheet.Properties.SheetID, 10)] = sheet.Properties.Title
	}

	c.mu.Lock()
	c.metadata[spreadsheetID] = metadataEntry{titles: titles, expiresAt: time.Now().Add(metadataTTL)}
	c.mu.Unlock()

	return titles, nil
}

// FetchSheets fetches several tabs of one spreadsheet in a single API
// request. Unknown gids are silently absent from the result.
func (c *Client) FetchSheets(ctx context.Context, spreadsheetID string, gids []string) (map[string]SheetData, error) {
	if len(gids) == 0 {
		return map[string]SheetData{}, nil
	}

	titles, err := c.FetchMetadata(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(gids))
	q := url.Values{}
	q.Set("includeGridData", "true")
	for _, gid := range gids {
		wanted[gid] = true
		if name, ok := titles[gid]; ok {
			q.Add("ranges", name)
		}
	}
	if len(q["ranges"]) == 0 {
		return map[string]SheetData{}, nil
	}

	var dto spreadsheetDTO
	if err := c.get(ctx, spreadsheetID, q, &dto); err != nil {
		return nil, err
	}

	result := make(map[string]SheetData)
	for _, sheet := range dto.Sheets {
		gid := strconv.FormatInt(sheet.Properties.SheetID, 10)
		if !wanted[gid] {
			continue
		}
		result[gid] = normalizeSheet(spreadsheetID, gid, sheet)
	}
	return result, nil
}

// FetchSheet is the single-tab convenience wrapper.
func (c *Client) FetchSheet(ctx context.Context, spreadsheetID, gid string) (SheetData, error) {
	all, err := c.FetchSheets(ctx, spreadsheetID, []string{gid})
	if err != nil {
		return SheetData{}, err
	}
	data, ok := all[gid]
	if !ok {
		return SheetData{}, ErrNotFound
	}
	return data, nil
}

func normalizeSheet(spreadsheetID, gid string, sheet sheetDTO) SheetData {
	data := SheetData{
		SpreadsheetID: spreadsheetID,
		GID:           gid,
		Title:         sheet.Properties.Title,
		Headers:       []string{},
		Data:          layout.Grid{},
	}
	if len(sheet.Data) == 0 {
		return data
	}

	rows := make(layout.Grid, 0, len(sheet.Data[0].RowData))
	width := 0
	for _, rd := range sheet.Data[0].RowData {
		row := make([]string, 0, len(rd.Values))
		for _, v := range rd.Values {
			row = append(row, v.FormattedValue)
		}
		rows = append(rows, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(rows) == 0 {
		return data
	}

	data.Headers = padRow(rows[0], width)
	for _, r := range rows[1:] {
		data.Data = append(data.Data, padRow(r, width))
	}
	return data
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
