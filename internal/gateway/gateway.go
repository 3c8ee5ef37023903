package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/internal/session"
	"github.com/nothingcube/regsync/pkg/logger"
)

const (
	// requestTimeout bounds a single REST call at the transport level.
	requestTimeout = 30 * time.Second

	// genericErrorMessage is shown when the server's error envelope carries
	// no message field.
	genericErrorMessage = "request to the registry failed"
)

// Client is the mutation gateway: every authenticated call against the
// remote registry API goes through it. It attaches the bearer credential,
// classifies failures and tears the session down on authorization failure.
// It never caches; the registry store owns the snapshot.
type Client struct {
	logger  *logger.Logger
	baseURL string
	session *session.Session
	client  *http.Client
}

// New creates a gateway client for the given base URL.
func New(baseURL string, sess *session.Session, logger *logger.Logger) *Client {
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		session: sess,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// errorEnvelope is the registry's error body convention: a JSON object with
// an optional human-readable message.
type errorEnvelope struct {
	Message string `json:"message"`
}

// do issues one authenticated request and decodes the response into out when
// out is non-nil. The authorization check runs before any other response
// interpretation.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.session.Token()
	if token == "" {
		return models.ErrUnauthenticated
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Authorization failure, tearing down session ", "path ", path)
		c.session.Invalidate()
		return models.ErrSessionExpired
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := genericErrorMessage
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
			message = envelope.Message
		}
		return &models.RemoteError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) ListContainers(ctx context.Context) ([]*models.ContainerConfig, error) {
	var containers []*models.ContainerConfig
	if err := c.do(ctx, http.MethodGet, "/admin/containers", nil, &containers); err != nil {
		return nil, err
	}
	return containers, nil
}

func (c *Client) CreateContainer(ctx context.Context, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	var created models.ContainerConfig
	if err := c.do(ctx, http.MethodPost, "/admin/containers", cfg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateContainer(ctx context.Context, id string, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	var updated models.ContainerConfig
	if err := c.do(ctx, http.MethodPut, "/admin/containers/"+id, cfg, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ToggleContainerActive(ctx context.Context, id string) (*models.ContainerConfig, error) {
	var updated models.ContainerConfig
	if err := c.do(ctx, http.MethodPatch, "/admin/containers/"+id+"/toggle-active", nil, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/containers/"+id, nil, nil)
}

func (c *Client) ListItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	if err := c.do(ctx, http.MethodGet, "/admin/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListShopItems(ctx context.Context) ([]*models.ShopItem, error) {
	var items []*models.ShopItem
	if err := c.do(ctx, http.MethodGet, "/admin/shop", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
