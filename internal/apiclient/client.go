package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/feed"
)

// Client talks to the guestbook API. It implements feed.Source and the
// slideshow fetcher.
type Client struct {
	baseURL    string
	guestToken string
	httpClient *http.Client
}

func New(baseURL, guestToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		guestToken: guestToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListPosts fetches one page of the wall.
func (c *Client) ListPosts(limit, offset int) (*feed.Page, error) {
	url := fmt.Sprintf("%s/api/v1/posts?limit=%d&offset=%d", c.baseURL, limit, offset)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var page feed.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode posts response: %w", err)
	}
	return &page, nil
}

// FetchAllMedia fetches the flattened media list for the slideshow.
func (c *Client) FetchAllMedia() ([]entity.MediaWithAuthor, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/api/v1/slideshow/media")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch slideshow media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var body struct {
		Media []entity.MediaWithAuthor `json:"media"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}
	return body.Media, nil
}

// Upload is one local file to attach to a new post.
type Upload struct {
	FileName string
	Data     []byte
}

// CreatePost submits a tribute with optional media.
func (c *Client) CreatePost(guestName, message string, uploads []Upload) (*entity.Post, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("guest_name", guestName); err != nil {
		return nil, err
	}
	if err := writer.WriteField("message", message); err != nil {
		return nil, err
	}
	if err := writer.WriteField("guest_token", c.guestToken); err != nil {
		return nil, err
	}
	for _, upload := range uploads {
		part, err := writer.CreateFormFile("media", upload.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(upload.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/v1/posts", writer.FormDataContentType(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var post entity.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("failed to decode post response: %w", err)
	}
	return &post, nil
}

// UpdatePost edits a post this device created. A nil media slice leaves
// the media list alone; a non-nil one replaces it.
func (c *Client) UpdatePost(postID string, guestName, message *string, media []entity.MediaItem) (*entity.Post, error) {
	payload := map[string]interface{}{}
	if guestName != nil {
		payload["guest_name"] = *guestName
	}
	if message != nil {
		payload["message"] = *message
	}
	if media != nil {
		payload["media"] = media
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPatch, c.baseURL+"/api/v1/posts/"+postID, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Token", c.guestToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var post entity.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("failed to decode post response: %w", err)
	}
	return &post, nil
}

// DeletePost removes a post this device created.
func (c *Client) DeletePost(postID string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/posts/"+postID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Guest-Token", c.guestToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("api error: unexpected status %d", resp.StatusCode)
}
