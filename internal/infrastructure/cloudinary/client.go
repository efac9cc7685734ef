package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured means the Cloudinary credentials are missing.
var ErrNotConfigured = errors.New("cloudinary credentials are not configured")

// UploadResult is the public location of an uploaded image.
type UploadResult struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Config holds the account credentials for a Client.
type Config struct {
	CloudName  string
	APIKey     string
	APISecret  string
	BaseURL    string
	HTTPClient *http.Client
}

// Client uploads images to a Cloudinary account using signed requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	now        func() time.Time
}

// NewClient creates an upload client. The client still constructs without
// credentials; Upload reports ErrNotConfigured at call time so a deployment
// without image hosting fails per-request, not at startup.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		now:        time.Now,
	}
}

// Upload sends an image payload (a data URI or remote URL) to the given
// folder and returns its public location. Provider failures surface as a
// generic upload error.
func (c *Client) Upload(ctx context.Context, imageData, folder string) (*UploadResult, error) {
	if c.cloudName == "" || c.apiKey == "" || c.apiSecret == "" {
		return nil, ErrNotConfigured
	}
	if imageData == "" {
		return nil, errors.New("image data is required")
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	form := url.Values{}
	form.Set("file", imageData)
	form.Set("api_key", c.apiKey)
	form.Set("timestamp", timestamp)
	if folder != "" {
		form.Set("folder", folder)
	}
	form.Set("signature", c.sign(folder, timestamp))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error.Message != "" {
			return nil, fmt.Errorf("failed to upload image: %s", body.Error.Message)
		}
		return nil, fmt.Errorf("failed to upload image: status %d", resp.StatusCode)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// sign builds the request signature: the sorted non-credential parameters
// concatenated with the API secret, SHA-1 hashed.
func (c *Client) sign(folder, timestamp string) string {
	params := make([]string, 0, 2)
	if folder != "" {
		params = append(params, "folder="+folder)
	}
	params = append(params, "timestamp="+timestamp)

	sum := sha1.Sum([]byte(strings.Join(params, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
