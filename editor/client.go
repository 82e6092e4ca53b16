// Package editor is the HTTP client for the story-editor surface of the
// generation backend: suggestions, line commits, chapter content, and draft
// chapter creation.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL   string
	projectID int
	httpc     *http.Client
}

func New(baseURL string, projectID int) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		httpc:     &http.Client{Timeout: defaultTimeout},
	}
}

// Suggest requests a batch of candidate continuations. The backend clamps
// NumSuggestions to 1..5; the caller is expected to stay in range.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	var resp suggestResponse
	path := fmt.Sprintf("/api/story-editor/%d/suggest", c.projectID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// SaveLine appends one line to the chapter's authoritative content.
func (c *Client) SaveLine(ctx context.Context, chapterID int, content string) (SaveResult, error) {
	var resp SaveResult
	path := fmt.Sprintf("/api/story-editor/%d/save-line", c.projectID)
	err := c.doJSON(ctx, http.MethodPost, path, saveLineRequest{ChapterID: chapterID, Content: content}, &resp)
	return resp, err
}

func (c *Client) ChapterContent(ctx context.Context, chapterID int) (ChapterContent, error) {
	var resp ChapterContent
	path := fmt.Sprintf("/api/story-editor/%d/chapter/%d/content", c.projectID, chapterID)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) CreateDraftChapter(ctx context.Context) (Chapter, error) {
	var resp createChapterResponse
	path := fmt.Sprintf("/api/story-editor/%d/create-draft-chapter", c.projectID)
	err := c.doJSON(ctx, http.MethodPost, path, nil, &resp)
	return resp.Chapter, err
}

func (c *Client) GenerationStatus(ctx context.Context) (GenerationStatus, error) {
	var resp GenerationStatus
	path := fmt.Sprintf("/api/generation/%d/status", c.projectID)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
