// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feishu talks to the Feishu (Lark) Bitable API: tenant
// authentication, record CRUD, table schema introspection and media
// upload for cover attachments.
package feishu

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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Avis-Rio/Chora/internal/httputil"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// BaseURL fronts the Feishu open API. Tests point it at a local server.
var BaseURL = "https://open.feishu.cn/open-apis"

// Record is one Bitable row.
type Record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// Client is a Bitable API client bound to one app/table.
type Client struct {
	client    *http.Client
	appID     string
	appSecret string
	baseID    string
	tableID   string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient constructs a Client from config.
func NewClient(hc *http.Client, cfg types.FeishuConfig) *Client {
	return &Client{
		client:    hc,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		baseID:    cfg.BaseID,
		tableID:   cfg.TableID,
		now:       time.Now,
	}
}

// apiResponse is the envelope every Feishu endpoint returns.
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) tableURL(suffix string) string {
	return fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s%s", BaseURL, c.baseID, c.tableID, suffix)
}

// Token returns a valid tenant access token, refreshing it when the
// cached one is within a minute of expiring.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		BaseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("token request failed: code %d: %s", result.Code, result.Msg)
	}

	expire := result.Expire
	if expire == 0 {
		expire = 7200
	}
	c.token = result.TenantAccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expire-60) * time.Second)
	return c.token, nil
}

// doJSON performs an authenticated JSON request and unmarshals the data
// envelope into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("parsing response from %s: %w", url, err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("api error from %s: code %d: %s", url, envelope.Code, envelope.Msg)
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("parsing data from %s: %w", url, err)
		}
	}
	return nil
}

// ListRecords fetches every row in the table, following pagination
// until the API reports no more pages.
func (c *Client) ListRecords(ctx context.Context, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var all []Record
	pageToken := ""
	for {
		url := c.tableURL("/records") + "?page_size=" + strconv.Itoa(pageSize)
		if pageToken != "" {
			url += "&page_token=" + pageToken
		}

		var page struct {
			Items     []Record `json:"items"`
			HasMore   bool     `json:"has_more"`
			PageToken string   `json:"page_token"`
		}
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if !page.HasMore || page.PageToken == "" {
			return all, nil
		}
		pageToken = page.PageToken
	}
}

// GetTableFields returns the field names defined on the table.
func (c *Client) GetTableFields(ctx context.Context) ([]string, error) {
	var data struct {
		Items []struct {
			FieldName string `json:"field_name"`
		} `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL("/fields"), nil, &data); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data.Items))
	for _, f := range data.Items {
		names = append(names, f.FieldName)
	}
	return names, nil
}

// CreateRecord inserts a row and returns its record ID.
func (c *Client) CreateRecord(ctx context.Context, fields map[string]any) (string, error) {
	var data struct {
		Record struct {
			RecordID string `json:"record_id"`
		} `json:"record"`
	}
	payload := map[string]any{"fields": fields}
	if err := c.doJSON(ctx, http.MethodPost, c.tableURL("/records"), payload, &data); err != nil {
		return "", err
	}
	return data.Record.RecordID, nil
}

// UpdateRecord overwrites the given fields on an existing row; fields
// not in the map are untouched.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields map[string]any) error {
	payload := map[string]any{"fields": fields}
	return c.doJSON(ctx, http.MethodPut, c.tableURL("/records/"+recordID), payload, nil)
}

// UploadImage uploads a cover to Feishu Drive as a bitable attachment
// and returns the file token for use in attachment fields.
func (c *Client) UploadImage(ctx context.Context, imagePath string) (string, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fileName := filepath.Base(imagePath)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	for key, value := range map[string]string{
		"file_name":   fileName,
		"parent_type": "bitable_image",
		"parent_node": c.baseID,
		"size":        strconv.Itoa(len(image)),
	} {
		if err := mw.WriteField(key, value); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		BaseURL+"/drive/v1/medias/upload_all", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			FileToken string `json:"file_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parsing upload response: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("upload failed: code %d: %s", result.Code, result.Msg)
	}
	return result.Data.FileToken, nil
}

// FieldString extracts a text field from a record, tolerating the
// rich-text array shape some cells come back as.
func FieldString(rec Record, name string) string {
	switch v := rec.Fields[name].(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for _, seg := range v {
			if m, ok := seg.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	}
	return ""
}
