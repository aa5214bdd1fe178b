// Package client implements the card store over the HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/flashvocab/internal/model"
)

const (
	apiPrefix      = "/api/vocabulary"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to a flashvocab server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a client for the server at baseURL, e.g. http://localhost:3001.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, model.Invalidf("invalid server url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, c.baseURL+"/api/health", nil, "", nil)
}

// ListSets returns every set with its counts.
func (c *Client) ListSets(ctx context.Context) ([]model.SetSummary, error) {
	var sets []model.SetSummary
	if err := c.doJSON(ctx, "list sets", http.MethodGet, "/sets", nil, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// GetSet returns the set with its unlearned cards, or all cards when includeAll is set.
func (c *Client) GetSet(ctx context.Context, id int64, includeAll bool) (model.SetDetail, error) {
	path := "/sets/" + strconv.FormatInt(id, 10)
	if includeAll {
		path += "?includeAll=true"
	}
	var detail model.SetDetail
	if err := c.doJSON(ctx, "get set", http.MethodGet, path, nil, &detail); err != nil {
		return model.SetDetail{}, err
	}
	return detail, nil
}

// ImportSet uploads rows as a CSV sheet.
func (c *Client) ImportSet(ctx context.Context, name, description string, rows []model.Row) (model.ImportResult, error) {
	if len(rows) == 0 {
		return model.ImportResult{}, model.Invalidf("no rows to import")
	}
	var buf bytes.Buffer
	if err := writeRowsCSV(&buf, rows); err != nil {
		return model.ImportResult{}, err
	}
	return c.upload(ctx, name, description, name+".csv", &buf)
}

// UploadFile sends a spreadsheet file as is. The server parses it.
func (c *Client) UploadFile(ctx context.Context, path, name, description string) (model.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		// Best-effort close.
		_ = f.Close()
	}()
	return c.upload(ctx, name, description, filepath.Base(path), f)
}

// DeleteSet removes a set and its cards.
func (c *Client) DeleteSet(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete set", http.MethodDelete, "/sets/"+strconv.FormatInt(id, 10), nil, nil)
}

// UpdateSet applies patch and returns the updated set.
func (c *Client) UpdateSet(ctx context.Context, id int64, patch model.SetPatch) (model.VocabularySet, error) {
	var set model.VocabularySet
	if err := c.doJSON(ctx, "update set", http.MethodPatch, "/sets/"+strconv.FormatInt(id, 10), patch, &set); err != nil {
		return model.VocabularySet{}, err
	}
	return set, nil
}

// SetCardLearned sets the learned flag of one card.
func (c *Client) SetCardLearned(ctx context.Context, cardID int64, learned bool) error {
	body := map[string]bool{"learned": learned}
	return c.doJSON(ctx, "mark card learned", http.MethodPatch, "/flashcards/"+strconv.FormatInt(cardID, 10)+"/learned", body, nil)
}

// ResetSet marks every card of the set as not learned.
func (c *Client) ResetSet(ctx context.Context, id int64) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.doJSON(ctx, "reset set", http.MethodPost, "/sets/"+strconv.FormatInt(id, 10)+"/reset", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ReorderSets stores the list order.
func (c *Client) ReorderSets(ctx context.Context, orderedIDs []int64) error {
	if orderedIDs == nil {
		orderedIDs = []int64{}
	}
	body := map[string][]int64{"orderedIds": orderedIDs}
	return c.doJSON(ctx, "reorder sets", http.MethodPost, "/sets/reorder", body, nil)
}

func (c *Client) upload(ctx context.Context, name, description, filename string, content io.Reader) (model.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			return model.ImportResult{}, fmt.Errorf("failed to build form: %w", err)
		}
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return model.ImportResult{}, fmt.Errorf("failed to build form: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to build form: %w", err)
	}

	var res model.ImportResult
	if err := c.do(ctx, "import set", http.MethodPost, c.baseURL+apiPrefix+"/upload", &buf, mw.FormDataContentType(), &res); err != nil {
		return model.ImportResult{}, err
	}
	return res, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, c.baseURL+apiPrefix+path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string, out any) error {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.TransportError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, model.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %s: %w", op, msg, model.ErrValidation)
	default:
		return &model.TransportError{Op: op, Status: resp.StatusCode, Message: msg}
	}
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
