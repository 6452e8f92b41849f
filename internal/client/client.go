package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lazypower/reserve/internal/identity"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 5 * time.Second
)

// Client talks to the reserve server on behalf of one user.
type Client struct {
	http      *http.Client
	serverURL string
	user      string
	token     string
}

// New creates a client, filling empty arguments from the environment.
// The server falls back to RESERVE_URL, then http://127.0.0.1:37778; the user
// to RESERVE_USER. RESERVE_TOKEN, when set, is sent as a bearer token.
func New(serverURL, user string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("RESERVE_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	if user == "" {
		user = os.Getenv("RESERVE_USER")
	}
	return NewWith(serverURL, user, os.Getenv("RESERVE_TOKEN"))
}

// NewWith creates a client for an explicit server and identity.
func NewWith(serverURL, user, token string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
		user:      user,
		token:     token,
	}
}

// Do sends a request with an optional JSON body. Returns response body.
// Responses with status 400 or above are returned alongside an error.
func (c *Client) Do(method, path string, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.serverURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" {
		req.Header.Set(identity.HeaderUserID, c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: data}
	}
	return data, nil
}

// StatusError is a non-2xx/3xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	var msg struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(e.Body, &msg) == nil && msg.Error != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, msg.Error)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, bytes.TrimSpace(e.Body))
}

// Call sends in as JSON (nil for no body) and decodes the response into out
// (nil to discard it).
func (c *Client) Call(method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	data, err := c.Do(method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.serverURL
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
