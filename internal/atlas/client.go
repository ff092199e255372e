// Package atlas integrates the hosted Nomic Atlas service: uploading issue
// text as a dataset and reading back the topic groups Atlas derives from it.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
)

// ErrMapBuilding marks a dataset whose topic map is still indexing. The
// caller may retry; every other error is fatal.
var ErrMapBuilding = errors.New("atlas map is still building")

// TopicGroup is one node of the Atlas topic hierarchy.
type TopicGroup struct {
	TopicID          int    `json:"topic_id"`
	Depth            int    `json:"depth"`
	ShortDescription string `json:"topic_short_description"`
	Description      string `json:"topic_description"`
}

// Row is one document uploaded for mapping.
type Row struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	State string `json:"state"`
}

type Client struct {
	Logger log.Logger
	Config *cfg.Config
	client *http.Client
}

func NewClient(config *cfg.Config, logger log.Logger) (*Client, error) {
	if config.Atlas.ApiKey == "" {
		return nil, fmt.Errorf("atlas api key is not configured")
	}
	return &Client{
		Logger: logger,
		Config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// CreateDataset uploads rows as a new text dataset and requests an index
// over the text field. Returns the dataset id to poll topics for.
func (c *Client) CreateDataset(ctx context.Context, name string, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to upload")
	}

	payload := map[string]any{
		"dataset_name":  name,
		"indexed_field": "text",
		"modality":      "text",
		"data":          rows,
	}
	var created struct {
		DatasetID string `json:"dataset_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/dataset/create", payload, &created); err != nil {
		return "", err
	}
	if created.DatasetID == "" {
		return "", fmt.Errorf("atlas returned no dataset id")
	}
	c.Logger.Info(ctx, "atlas dataset %s created with %d rows", created.DatasetID, len(rows))
	return created.DatasetID, nil
}

// FetchTopics reads the topic groups of a dataset at depth 1. While the
// map is indexing it returns ErrMapBuilding.
func (c *Client) FetchTopics(ctx context.Context, datasetID string) ([]TopicGroup, error) {
	var result struct {
		State  string       `json:"state"`
		Topics []TopicGroup `json:"topics"`
	}
	path := fmt.Sprintf("/v1/dataset/%s/topics?depth=1", datasetID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	switch result.State {
	case "ready", "":
		return result.Topics, nil
	case "indexing", "locked":
		return nil, ErrMapBuilding
	default:
		return nil, fmt.Errorf("atlas dataset %s in unexpected state %q", datasetID, result.State)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	conf := c.Config

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode atlas request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, conf.Atlas.BaseUrl+path, reader)
	if err != nil {
		return fmt.Errorf("cannot create atlas request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conf.Atlas.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("atlas request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusLocked {
		return ErrMapBuilding
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("atlas returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cannot decode atlas response: %w", err)
	}
	return nil
}
