package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// ErrZoneNotFound is returned when the provider has no zone of that name.
var ErrZoneNotFound = errors.New("dns: zone not found")

// Record is an A record as stored by the provider.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

type zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

// Client is a thin client for the Cloudflare v4 DNS API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for baseURL (e.g. https://api.cloudflare.com/client/v4).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// ZoneID looks up the zone identifier for name.
func (c *Client) ZoneID(ctx context.Context, name string) (string, error) {
	var zones []zone
	if err := c.do(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(name), nil, &zones); err != nil {
		return "", fmt.Errorf("lookup zone %s: %w", name, err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w: %s", ErrZoneNotFound, name)
	}
	return zones[0].ID, nil
}

// ARecords returns the A records named name inside zoneID.
func (c *Client) ARecords(ctx context.Context, zoneID, name string) ([]Record, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("type", "A")

	var records []Record
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("list records %s: %w", name, err)
	}
	return records, nil
}

// UpdateRecord replaces the record identified by recordID.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, record Record) error {
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records/" + url.PathEscape(recordID)
	if err := c.do(ctx, http.MethodPut, path, record, nil); err != nil {
		return fmt.Errorf("update record %s: %w", record.Name, err)
	}
	return nil
}

// CreateRecord adds a new record to zoneID.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, record Record) error {
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records"
	if err := c.do(ctx, http.MethodPost, path, record, nil); err != nil {
		return fmt.Errorf("create record %s: %w", record.Name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if len(env.Errors) == 0 {
			return errors.New("api error: request not successful")
		}
		return fmt.Errorf("api error %d: %s", env.Errors[0].Code, env.Errors[0].Message)
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}
