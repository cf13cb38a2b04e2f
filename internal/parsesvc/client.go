package parsesvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/canview/internal/rows"
)

const maxResponseBytes = 256 << 20

// Data is the parsed CSV content of a file.
type Data struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// Table converts the payload for projection.
func (d *Data) Table() rows.Table {
	if d == nil {
		return rows.Table{}
	}
	return rows.Table{Headers: d.Headers, Rows: d.Rows}
}

// Response is the parse service reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *Data  `json:"data,omitempty"`
	Cached  bool   `json:"cached"`
}

// Result is a successful parse together with the digest of the raw reply.
type Result struct {
	Data   *Data
	Cached bool
	Digest string
}

// Error is a parse failure reported by the service. It ends the current view.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 && e.Status != http.StatusOK {
		return fmt.Sprintf("parse failed (%d): %s", e.Status, e.Message)
	}
	return "parse failed: " + e.Message
}

// Client calls the parse service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Parse requests the parsed content of filename for protocol.
func (c *Client) Parse(ctx context.Context, filename, protocol string) (*Result, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("empty filename")
	}
	if c == nil || c.BaseURL == "" {
		return nil, errors.New("parse service URL not configured")
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/parse/" + url.PathEscape(filename)
	if protocol != "" {
		endpoint += "?" + url.Values{"protocol": []string{protocol}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	defer resp.Body.Close()
	res, err := decode(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			perr.Status = resp.StatusCode
			return nil, perr
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, err
	}
	return res, nil
}

// DecodeResult reads a saved parse service reply.
func DecodeResult(r io.Reader) (*Result, error) {
	return decode(r)
}

func decode(r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode parse response: %w", err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &Error{Message: msg}
	}
	if resp.Data == nil {
		resp.Data = &Data{}
	}
	sum := sha256.Sum256(raw)
	return &Result{Data: resp.Data, Cached: resp.Cached, Digest: hex.EncodeToString(sum[:])}, nil
}
