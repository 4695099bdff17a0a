package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"caption-studio/internal/domain"
)

// Response is the transcription service's upload reply.
type Response struct {
	Message   string           `json:"message"`
	File      string           `json:"file"`
	Subtitles []domain.Caption `json:"subtitles"`
	VideoPath string           `json:"video_path"`
}

// RequestError carries the server-reported failure detail so it can be
// shown to the user verbatim.
type RequestError struct {
	StatusCode int
	Detail     string
}

// Error prefers the server's own message over a generic one.
func (e *RequestError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("transcription request failed (status %d)", e.StatusCode)
}

// errorReply mirrors the service's failure body.
type errorReply struct {
	Detail string `json:"detail"`
}

// Client talks to the external transcription and rendering service.
// One client lives for the whole app session; a settings change
// repoints it through SetBaseURL instead of replacing it.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given service base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetBaseURL repoints the client at a new service address.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// base returns the current service address under the read lock.
func (c *Client) base() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Upload posts the video file as multipart form data and returns the
// parsed caption set and processed-video reference.
func (c *Client) Upload(ctx context.Context, path string) (Response, error) {
	file, err := os.Open(path)
	if err != nil {
		return Response{}, fmt.Errorf("open video file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Response{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Response{}, fmt.Errorf("read video file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Response{}, fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/upload", &body)
	if err != nil {
		return Response{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("upload video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, newRequestError(resp)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("decode upload response: %w", err)
	}
	return parsed, nil
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach transcription service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newRequestError(resp)
	}
	return nil
}

// VideoURL derives the live playback URL for a processed file reference.
func (c *Client) VideoURL(file string) string {
	return c.base() + "/video/" + file
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.base()
}

// newRequestError extracts the server's detail field from a failure body.
func newRequestError(resp *http.Response) *RequestError {
	reqErr := &RequestError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return reqErr
	}

	var reply errorReply
	if err := json.Unmarshal(data, &reply); err == nil {
		reqErr.Detail = strings.TrimSpace(reply.Detail)
	}
	return reqErr
}
