// Package apiclient is the HTTP client for the perch feed API. Failures are
// normalized into three categories (transport, server, unknown) that callers
// test with errors.Is; the retry machinery treats all of them alike.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/myles/perch/internal/models"
)

// Sentinel errors for the failure taxonomy. ErrUnauthorized and ErrNotFound
// are specializations of ErrServer, so errors.Is(err, ErrServer) holds for
// them too.
var (
	ErrTransport = errors.New("transport failure")
	ErrServer    = errors.New("server rejected request")
	ErrUnknown   = errors.New("unknown failure")

	ErrUnauthorized = fmt.Errorf("%w: unauthorized", ErrServer)
	ErrNotFound     = fmt.Errorf("%w: not found", ErrServer)
)

// Client is an HTTP client for the perch server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Auth types (mirrors internal/api/auth.go, independently defined) ---

// SessionResponse is the response from register/login.
type SessionResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
}

// --- Feed types ---

// TimelineResponse is one page of the feed.
type TimelineResponse struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor"`
}

// newerResponse is the body of GET /v1/timeline/newer.
type newerResponse struct {
	Posts []models.Post `json:"posts"`
}

// createPostRequest is the body for POST /v1/posts.
type createPostRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health hits the /healthz endpoint to verify server reachability.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doNoAuth("GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Auth methods ---

// Register creates an account and returns a session token.
func (c *Client) Register(login, password, name string) (*SessionResponse, error) {
	body := map[string]string{"login": login, "password": password, "name": name}
	var resp SessionResponse
	if err := c.doNoAuth("POST", "/v1/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with login and password and returns a session token.
func (c *Client) Login(login, password string) (*SessionResponse, error) {
	body := map[string]string{"login": login, "password": password}
	var resp SessionResponse
	if err := c.doNoAuth("POST", "/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Feed methods ---

// Timeline fetches one page of the feed. cursor "" means the head; the
// returned NextCursor is opaque and is fed back in to get the next page.
func (c *Client) Timeline(cursor string, limit int) (*TimelineResponse, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/v1/timeline"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp TimelineResponse
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Newer fetches posts with IDs greater than sinceID, oldest first.
func (c *Client) Newer(sinceID int64) ([]models.Post, error) {
	path := fmt.Sprintf("/v1/timeline/newer?since_id=%d", sinceID)
	var resp newerResponse
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// CreatePost submits a new post and returns the canonical server copy.
func (c *Client) CreatePost(content string, attachment *models.Attachment) (*models.Post, error) {
	body := createPostRequest{Content: content, Attachment: attachment}
	var resp models.Post
	if err := c.do("POST", "/v1/posts", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePost removes a post. Only the author may delete it.
func (c *Client) DeletePost(id int64) error {
	return c.do("DELETE", fmt.Sprintf("/v1/posts/%d", id), nil, nil)
}

// Like marks a post as liked by the viewer and returns the canonical post.
func (c *Client) Like(id int64) (*models.Post, error) {
	var resp models.Post
	if err := c.do("POST", fmt.Sprintf("/v1/posts/%d/like", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unlike removes the viewer's like and returns the canonical post.
func (c *Client) Unlike(id int64) (*models.Post, error) {
	var resp models.Post
	if err := c.do("DELETE", fmt.Sprintf("/v1/posts/%d/like", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadMedia uploads a media file and returns the attachment reference to
// embed in a post.
func (c *Client) UploadMedia(filename string, data []byte) (*models.Attachment, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: build upload: %v", ErrUnknown, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("%w: build upload: %v", ErrUnknown, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: build upload: %v", ErrUnknown, err)
	}

	req, err := http.NewRequest("POST", c.BaseURL+"/v1/media", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrUnknown, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode >= 400 {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var att models.Attachment
	if err := json.Unmarshal(respBody, &att); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrUnknown, err)
	}
	return &att, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// Unwrap folds every structured server error into the ErrServer category.
func (e *apiError) Unwrap() error {
	return ErrServer
}

// do executes an authenticated HTTP request.
func (c *Client) do(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, false)
}

func (c *Client) doRequest(method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", ErrUnknown, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUnknown, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		slog.Debug("api request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	slog.Debug("api request", "method", method, "path", path, "status", resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: unmarshal response: %v", ErrUnknown, err)
		}
	}

	return nil
}

// classifyStatus turns a non-success response into a taxonomy error.
func classifyStatus(status int, body []byte) error {
	var envelope struct {
		Error apiError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
		apiErr := envelope.Error
		apiErr.Status = status
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return &apiErr
		}
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrServer, status, bytes.TrimSpace(body))
}
