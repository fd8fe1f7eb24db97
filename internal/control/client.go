package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"meshpm/internal/api"
	"meshpm/internal/config"
)

// ErrDaemonNotRunning reports that no daemon answered at the configured
// address and no live daemon process could be found.
var ErrDaemonNotRunning = errors.New("daemon is not running")

const requestTimeout = 10 * time.Second

// Client talks to a running daemon over its HTTP control API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the control API at address. An empty token sends
// unauthenticated requests, which only succeed against a daemon without a
// token file.
func New(address, token string) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(address),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// NewFromConfig builds a client from the CLI configuration. When the config
// carries no explicit token, the token file the daemon writes under the base
// directory is used, so a CLI on the same machine needs no setup.
func NewFromConfig(cfg *config.Client) (*Client, error) {
	token := cfg.Token
	if token == "" {
		data, err := os.ReadFile(cfg.TokenPath())
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}
	return New(cfg.Address, token), nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Services lists every registered service.
func (c *Client) Services(ctx context.Context) ([]api.ServiceInfo, error) {
	var list api.ServiceListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/services", nil, &list); err != nil {
		return nil, err
	}
	return list.Services, nil
}

// CreateService registers a new service under the given name.
func (c *Client) CreateService(ctx context.Context, name, command string) (*api.ServiceInfo, error) {
	req := api.CreateServiceRequest{Name: name, Command: command}
	var resp api.ServiceResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/services", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Service, nil
}

// RemoveService deletes a service, stopping its process first if needed.
func (c *Client) RemoveService(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, servicePath(id), nil, nil)
}

// StartService launches the service under the daemon's driver.
func (c *Client) StartService(ctx context.Context, id int64) (*api.ServiceInfo, error) {
	var resp api.ServiceResponse
	if err := c.do(ctx, http.MethodPost, servicePath(id)+"/start", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Service, nil
}

// StopService stops the service if it is running.
func (c *Client) StopService(ctx context.Context, id int64) (*api.ServiceInfo, error) {
	var resp api.ServiceResponse
	if err := c.do(ctx, http.MethodPost, servicePath(id)+"/stop", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Service, nil
}

func servicePath(id int64) string {
	return fmt.Sprintf("/api/v1/services/%d", id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isDaemonUnavailable(err) {
			return fmt.Errorf("%w at %s", ErrDaemonNotRunning, c.baseURL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isDaemonUnavailable reports whether err means nothing is listening at the
// daemon address, as opposed to a failure inside a reachable daemon.
func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
