package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"studentpics/internal/students"
)

const (
	defaultAPIBase      = "https://api.cloudinary.com"
	defaultDeliveryBase = "https://res.cloudinary.com"
)

// Client stores pictures in Cloudinary using their REST API. Blob names
// map to public IDs without the extension, placed under Folder.
type Client struct {
	CloudName    string
	APIKey       string
	APISecret    string
	Folder       string
	APIBase      string
	DeliveryBase string
	HTTP         *http.Client

	now func() time.Time
}

// New creates a Cloudinary client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName:    cloudName,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		Folder:       strings.Trim(folder, "/"),
		APIBase:      defaultAPIBase,
		DeliveryBase: defaultDeliveryBase,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

type destroyResult struct {
	Result string `json:"result"`
}

func publicID(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func (c *Client) fullID(name string) string {
	if c.Folder == "" {
		return publicID(name)
	}
	return c.Folder + "/" + publicID(name)
}

func (c *Client) endpoint(action string) string {
	return fmt.Sprintf("%s/v1_1/%s/image/%s", strings.TrimRight(c.APIBase, "/"), c.CloudName, action)
}

func (c *Client) signedParams(extra map[string]string) map[string]string {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.APIKey,
	}
	for k, v := range extra {
		params[k] = v
	}
	params["signature"] = c.sign(params)
	return params
}

// Put uploads the picture under a fixed public ID.
func (c *Client) Put(ctx context.Context, name string, data []byte) error {
	extra := map[string]string{"public_id": publicID(name), "overwrite": "true"}
	if c.Folder != "" {
		extra["folder"] = c.Folder
	}
	params := c.signedParams(extra)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("cloudinary: create form file failed: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("cloudinary: write file failed: %w", err)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), &buf)
	if err != nil {
		return fmt.Errorf("cloudinary: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return fmt.Errorf("cloudinary: upload failed: %w", err)
	}
	return nil
}

// Delete destroys the picture. Cloudinary answers "not found" for unknown IDs.
func (c *Client) Delete(ctx context.Context, name string) error {
	params := c.signedParams(map[string]string{"public_id": c.fullID(name), "invalidate": "true"})
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("destroy"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("cloudinary: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result destroyResult
	if err := c.do(req, &result); err != nil {
		return fmt.Errorf("cloudinary: destroy failed: %w", err)
	}
	switch result.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("%s: %w", name, students.ErrBlobNotFound)
	default:
		return fmt.Errorf("cloudinary: destroy %s: unexpected result %q", name, result.Result)
	}
}

// Locate returns the public delivery URL of a stored picture.
func (c *Client) Locate(name string) string {
	id := c.fullID(name) + path.Ext(name)
	return fmt.Sprintf("%s/%s/image/upload/%s", strings.TrimRight(c.DeliveryBase, "/"), c.CloudName, id)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sign computes the Cloudinary API signature from the given params.
// api_key and file are never part of the signature.
func (c *Client) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	payload := strings.Join(pairs, "&") + c.APISecret
	h := sha1.New()
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
