// Package inventory fetches the Ansible inventory of a devops space
// from the devops HTTP API.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultURL      = "http://127.0.0.1:3000"
	DefaultUsername = "admin"
	DefaultPassword = "admin"
)

var (
	ErrServer      = errors.New("inventory server error")
	ErrInvalidJSON = errors.New("inventory response is not valid json")
)

type Config struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Client talks to the devops API. The session cookie set by Login is
// kept for subsequent requests.
type Client struct {
	base     *url.URL
	username string
	password string
	client   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing inventory url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Client{
		base:     base,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Jar: jar},
	}, nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("username", c.username)

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("login").String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error(err, "failed to login")
		return fmt.Errorf("logging in: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	log.V(1).Info("logged in", "code", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: login failed with code: %d", ErrServer, resp.StatusCode)
	}
	return nil
}

// List returns every group and host in the space.
func (c *Client) List(ctx context.Context, space string) (json.RawMessage, error) {
	return c.get(ctx, c.base.JoinPath("ansible"), space)
}

// Host returns the variables of a single host.
func (c *Client) Host(ctx context.Context, name, space string) (json.RawMessage, error) {
	return c.get(ctx, c.base.JoinPath("ansible", name), space)
}

func (c *Client) get(ctx context.Context, u *url.URL, space string) (json.RawMessage, error) {
	q := u.Query()
	q.Set("space", space)
	u.RawQuery = q.Encode()

	log := logr.FromContextOrDiscard(ctx).WithValues("url", u.String())
	log.V(1).Info("querying inventory")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error(err, "failed to query inventory")
		return nil, fmt.Errorf("querying inventory: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	log.V(2).Info("inventory request completed", "code", resp.StatusCode, "size", len(data))
	if resp.StatusCode == http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s", ErrServer, data)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		log.Error(err, "inventory response is not valid json")
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, data)
	}
	return buf.Bytes(), nil
}
