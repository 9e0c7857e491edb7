// Package renderer talks to the external templated image renderer.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
)

// Client is the renderer contract used by the composer and the job tracker.
//
// Submit creates a new renderer resource on every call; callers must not
// retry it blindly. Fetch and Delete are idempotent.
type Client interface {
	Submit(ctx context.Context, templateID string, layers contracts.Layers, mods *contracts.Modifications) (contracts.Image, error)
	Fetch(ctx context.Context, id string) (contracts.Image, error)
	Delete(ctx context.Context, id string) bool
}

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Log        *logger.Logger
}

type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logger.Logger
}

func NewHTTPClient(opts Options) *HTTPClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   strings.TrimSpace(opts.Token),
		client:  client,
		log:     log.WithComponent("renderer"),
	}
}

func (c *HTTPClient) Submit(ctx context.Context, templateID string, layers contracts.Layers, mods *contracts.Modifications) (contracts.Image, error) {
	const op = "renderer.submit"
	log := c.log.FromContext(ctx)

	body, err := json.Marshal(contracts.CreateRequest{
		TemplateUUID:  templateID,
		Layers:        layers,
		Modifications: mods,
		CreateNow:     true,
	})
	if err != nil {
		return contracts.Image{}, errors.Wrap(err, op, "encode create request")
	}

	var img contracts.Image
	status, err := c.do(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body), &img)
	if err != nil {
		log.Error("renderer create failed", "template_uuid", templateID, "status", status, "error", err.Error())
		return contracts.Image{}, errors.WrapWithCode(err, errors.CodeUnavailable, op, "renderer create failed").
			WithField("template_uuid", templateID)
	}
	if img.ID == "" {
		log.Error("renderer create returned no id", "template_uuid", templateID)
		return contracts.Image{}, errors.New(errors.CodeUnavailable, "renderer returned no image id").
			WithField("template_uuid", templateID)
	}

	log.Info("renderer image created", "image_id", img.ID.String(), "status", img.Status, "ready", img.Ready())
	return img, nil
}

func (c *HTTPClient) Fetch(ctx context.Context, id string) (contracts.Image, error) {
	const op = "renderer.fetch"

	var img contracts.Image
	status, err := c.do(ctx, http.MethodGet, c.imageURL(id), nil, &img)
	if status == http.StatusNotFound {
		return contracts.Image{}, errors.NotFound("image", id)
	}
	if err != nil {
		c.log.FromContext(ctx).Warn("renderer get failed", "image_id", id, "status", status, "error", err.Error())
		return contracts.Image{}, errors.WrapWithCode(err, errors.CodeUnavailable, op, "renderer get failed").
			WithField("image_id", id)
	}
	if img.ID == "" {
		img.ID = contracts.ImageID(id)
	}
	return img, nil
}

// Delete is best-effort cleanup; failures are logged and reported as false.
func (c *HTTPClient) Delete(ctx context.Context, id string) bool {
	status, err := c.do(ctx, http.MethodDelete, c.imageURL(id), nil, nil)
	if err != nil {
		c.log.FromContext(ctx).Warn("renderer delete failed", "image_id", id, "status", status, "error", err.Error())
		return false
	}
	return true
}

func (c *HTTPClient) imageURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(strings.TrimSpace(id))
}

// do sends the request and decodes a 2xx JSON body into out when out is
// non-nil. It returns the HTTP status (0 on transport errors).
func (c *HTTPClient) do(ctx context.Context, method, target string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return res.StatusCode, fmt.Errorf("renderer http %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, fmt.Errorf("malformed renderer response: %w", err)
	}
	return res.StatusCode, nil
}

var _ Client = (*HTTPClient)(nil)
