package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrConflict = errors.New("remote file changed since it was read")
)

// UpstreamError carries the status of an unexpected provider response. The
// response body is not included; it may echo credentials.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("github: unexpected status %d: %s", e.Status, e.Message)
}

// File is a decoded Contents API file: the document bytes plus the SHA used
// as the revision marker for conditional writes.
type File struct {
	Content     []byte
	SHA         string
	HTMLURL     string
	DownloadURL string
}

// PutResult reports a successful create or update.
type PutResult struct {
	CommitSHA   string
	CommitURL   string
	ContentSHA  string
	ContentURL  string
	DownloadURL string
}

// Config holds the repository coordinates and credentials for a Client.
type Config struct {
	Owner      string
	Repo       string
	Branch     string
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the GitHub Contents API for a single repository branch.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	branch     string
	token      string
	tracer     trace.Tracer
}

// NewClient creates a Contents API client. Branch defaults to main and the
// HTTP client gets a 10s timeout unless one is supplied.
func NewClient(cfg Config) *Client {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		token:      cfg.Token,
		tracer:     otel.Tracer("storefront/github"),
	}
}

type contentsResponse struct {
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
	SHA         string `json:"sha"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
	Content struct {
		SHA         string `json:"sha"`
		HTMLURL     string `json:"html_url"`
		DownloadURL string `json:"download_url"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// GetFile fetches a file from the configured branch. ErrNotFound signals
// that the file does not exist yet, which callers treat as a valid state.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	ctx, span := c.tracer.Start(ctx, "github.get_file",
		trace.WithAttributes(attribute.String("github.path", path)))
	defer span.End()

	u := fmt.Sprintf("%s?ref=%s", c.contentsURL(path), url.QueryEscape(c.branch))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: decodeMessage(resp)}
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The API returns base64 content with embedded newlines.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode file content: %w", err)
	}

	return &File{
		Content:     content,
		SHA:         body.SHA,
		HTMLURL:     body.HTMLURL,
		DownloadURL: body.DownloadURL,
	}, nil
}

// PutFile creates or updates a file. Pass the SHA from the most recent read
// to update; an empty SHA creates the file. A SHA mismatch means another
// writer got there first and surfaces as ErrConflict with the provider's
// message; the caller decides whether to re-read and retry.
func (c *Client) PutFile(ctx context.Context, path string, content []byte, message, sha string) (*PutResult, error) {
	ctx, span := c.tracer.Start(ctx, "github.put_file",
		trace.WithAttributes(attribute.String("github.path", path)))
	defer span.End()

	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     sha,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrConflict, decodeMessage(resp))
	default:
		return nil, &UpstreamError{Status: resp.StatusCode, Message: decodeMessage(resp)}
	}

	var body putResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &PutResult{
		CommitSHA:   body.Commit.SHA,
		CommitURL:   body.Commit.HTMLURL,
		ContentSHA:  body.Content.SHA,
		ContentURL:  body.Content.HTMLURL,
		DownloadURL: body.Content.DownloadURL,
	}, nil
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "storefront-server")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
}

func decodeMessage(resp *http.Response) string {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}
