// Package store is a thin client for the project store collaborator. The
// session core never depends on it; the CLI uses it to populate the chapter
// picker and to refresh chapter lists when generation completes.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storyloom/storyloom/editor"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ListChapters returns the project's chapters in order.
func (c *Client) ListChapters(ctx context.Context, projectID int) ([]editor.Chapter, error) {
	url := fmt.Sprintf("%s/api/projects/%d/chapters", c.baseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list chapters: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var chapters []editor.Chapter
	if err := json.NewDecoder(resp.Body).Decode(&chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	return chapters, nil
}
