package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Tiliavir/timegrid/internal/model"
)

const apiPrefix = "/rest/user"

// APIError is a non-success answer from the timesheet API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("timesheet API error %d", e.Status)
	}
	return fmt.Sprintf("timesheet API error %d: %s", e.Status, e.Message)
}

// Client talks to the timesheet REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL. httpClient carries
// authentication; see HTTPClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return model.User{}, err
	}
	if env.User == nil {
		return model.User{}, fmt.Errorf("response to /me lacks a user")
	}
	return *env.User, nil
}

// Current returns the user's latest timesheet.
func (c *Client) Current(ctx context.Context) (*model.Timesheet, error) {
	return c.timesheet(ctx, http.MethodGet, "/timesheet/current", nil)
}

// ForDate returns the timesheet whose pay period contains day (YYYYMMDD).
func (c *Client) ForDate(ctx context.Context, day string) (*model.Timesheet, error) {
	return c.timesheet(ctx, http.MethodGet, "/timesheet/custom/"+url.PathEscape(day), nil)
}

// Next returns the timesheet of the pay period after the one beginning on begin.
func (c *Client) Next(ctx context.Context, begin string) (*model.Timesheet, error) {
	return c.timesheet(ctx, http.MethodGet, "/timesheet/next/"+url.PathEscape(begin), nil)
}

// Save stores the bills in payload.
func (c *Client) Save(ctx context.Context, id int, payload string) error {
	_, err := c.do(ctx, http.MethodPost, "/timesheet/"+strconv.Itoa(id)+"/save", url.Values{"data": {payload}})
	return err
}

// Complete stores the bills in payload and marks the timesheet completed.
func (c *Client) Complete(ctx context.Context, id int, payload string) error {
	_, err := c.do(ctx, http.MethodPost, "/timesheet/"+strconv.Itoa(id)+"/complete", url.Values{"data": {payload}})
	return err
}

// Fix reopens a completed timesheet.
func (c *Client) Fix(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodPost, "/timesheet/"+strconv.Itoa(id)+"/fix", url.Values{})
	return err
}

// Audit returns the change history of a timesheet, oldest first.
func (c *Client) Audit(ctx context.Context, id int) ([]model.AuditLog, error) {
	env, err := c.do(ctx, http.MethodGet, "/timesheet/"+strconv.Itoa(id)+"/audit", nil)
	if err != nil {
		return nil, err
	}
	return env.Logs, nil
}

func (c *Client) timesheet(ctx context.Context, method, path string, form url.Values) (*model.Timesheet, error) {
	env, err := c.do(ctx, method, path, form)
	if err != nil {
		return nil, err
	}
	if env.Timesheet == nil {
		return nil, fmt.Errorf("response to %s lacks a timesheet", path)
	}
	return env.Timesheet, nil
}

// do sends one request. A non-nil form is sent url-encoded.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*model.Envelope, error) {
	endpoint := c.baseURL + apiPrefix + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timesheet API request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var env model.Envelope
	jsonErr := json.Unmarshal(data, &env)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if jsonErr == nil && env.Msg != "" {
			msg = env.Msg
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", path, jsonErr)
	}
	if !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Msg}
	}
	return &env, nil
}
