package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
)

// Client calls a running kotae server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Chat sends one conversation turn. An empty sessionID starts a new session.
func (c *Client) Chat(ctx context.Context, sessionID, query string) (*models.ChatResponse, error) {
	var out models.ChatResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat", models.ChatRequest{SessionID: sessionID, Query: query}, &out)
	return &out, err
}

// Bookings lists bookings, filtered by email when non-empty.
func (c *Client) Bookings(ctx context.Context, email string) (*models.BookingList, error) {
	path := "/api/v1/bookings"
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	var out models.BookingList
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return &out, err
}

// Status fetches the server status report.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/status", nil, &out)
	return &out, err
}

// Upload sends a document as multipart form data. Zero chunkSize and empty strategy use server defaults.
func (c *Client) Upload(ctx context.Context, fileName string, content []byte, strategy string, chunkSize int) (*models.IngestResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if strategy != "" {
		_ = mw.WriteField("strategy", strategy)
	}
	if chunkSize > 0 {
		_ = mw.WriteField("chunk_size", strconv.Itoa(chunkSize))
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out models.IngestResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
