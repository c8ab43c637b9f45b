// Package apidump fetches a JSON API response and writes a selected part of
// it verbatim.
package apidump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/harvester/models"
)

// Credentials are static request credentials. OAuth flows are not
// supported; obtain the token out of band.
type Credentials struct {
	// Token is sent as "Authorization: <TokenType> <Token>".
	Token string `yaml:"token"`

	// TokenType defaults to "Bearer".
	TokenType string `yaml:"token_type"`

	Headers map[string]string `yaml:"headers"`
}

// LoadCredentials reads Credentials from a YAML file.
func LoadCredentials(path string) (Credentials, error) {
	var c Credentials
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("apidump: read credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("apidump: parse credentials %s: %w", path, err)
	}
	return c, nil
}

// Request describes one dump.
type Request struct {
	// URL is absolute, or relative to the client's base URL.
	URL   string
	Query map[string]string

	// ListKey is a dotted path into the response ("statuses",
	// "data.items", "results.0"). Empty selects the whole document.
	ListKey string
}

// Client issues dump requests.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client. baseURL may be empty when requests carry
// absolute URLs.
func NewClient(baseURL string, timeout time.Duration, creds Credentials) *Client {
	client := resty.New()
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("Accept", "application/json")
	client.SetHeaders(creds.Headers)
	if creds.Token != "" {
		if creds.TokenType != "" {
			client.SetAuthScheme(creds.TokenType)
		}
		client.SetAuthToken(creds.Token)
	}
	return &Client{http: client}
}

// Dump GETs req.URL, selects req.ListKey and writes the selected JSON value
// to w exactly as the server sent it, followed by a newline. It returns the
// number of bytes written.
func (c *Client) Dump(ctx context.Context, req Request, w io.Writer) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(req.Query).
		Get(req.URL)
	if err != nil {
		return 0, models.NewHarvestError(models.ErrCodeFetch, "GET "+req.URL+" failed", err)
	}
	if !resp.IsSuccess() {
		he := models.NewStatusError(resp.StatusCode(), req.URL)
		he.Message = fmt.Sprintf("GET %s: %s", req.URL, resp.Status())
		return 0, he
	}

	body := resp.Body()
	if !json.Valid(body) {
		return 0, models.NewHarvestError(models.ErrCodeParse, "response of "+req.URL+" is not JSON", nil)
	}

	selected, err := Select(body, req.ListKey)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(append(selected, '\n'))
	if err != nil {
		return int64(n), models.NewHarvestError(models.ErrCodeWrite, "writing dump failed", err)
	}
	return int64(n), nil
}

// Select walks a dotted key path through doc and returns the raw bytes of
// the value it names. Object members are matched by exact name; numeric
// segments index arrays. An empty path returns doc trimmed of surrounding
// whitespace.
func Select(doc []byte, path string) ([]byte, error) {
	current := json.RawMessage(bytes.TrimSpace(doc))
	if path == "" {
		return current, nil
	}

	for _, seg := range strings.Split(path, ".") {
		next, err := step(current, seg)
		if err != nil {
			return nil, models.NewHarvestError(models.ErrCodeNotFound,
				fmt.Sprintf("key %q not found in response", path), err)
		}
		current = next
	}
	return bytes.TrimSpace(current), nil
}

func step(value json.RawMessage, seg string) (json.RawMessage, error) {
	switch firstByte(value) {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(value, &obj); err != nil {
			return nil, err
		}
		v, ok := obj[seg]
		if !ok {
			return nil, fmt.Errorf("no member %q", seg)
		}
		return v, nil
	case '[':
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %q does not index an array", seg)
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(value, &arr); err != nil {
			return nil, err
		}
		if i < 0 || i >= len(arr) {
			return nil, fmt.Errorf("index %d out of range (len %d)", i, len(arr))
		}
		return arr[i], nil
	}
	return nil, fmt.Errorf("segment %q applied to a scalar", seg)
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
