// Package confluence implements the wiki client used to fetch the published
// phantom log table and to push the reconciled table back to the page.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/a2cps/phantomdb-go/internal/errors"
	"github.com/a2cps/phantomdb-go/internal/logging"
)

// Package-level logger specific to the confluence service
var serviceLogger *slog.Logger

func init() {
	var err error
	logFilePath := filepath.Join("logs", "confluence.log")

	serviceLogger, _, err = logging.NewFileLogger(logFilePath, "confluence", slog.LevelDebug)
	if err != nil {
		// Fallback: disable service logging rather than panic
		log.Printf("Failed to initialize confluence file logger at %s: %v. Service logging disabled.", logFilePath, err)
		serviceLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
}

// Client talks to the Confluence REST API. Both calls it exposes are
// treated as atomic remote operations; failures propagate to the caller
// unmodified and no retry is attempted here.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Confluence client authenticating with a personal
// access token. The HTTP client carries a 45-second timeout to prevent
// hanging requests.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 45 * time.Second},
	}
}

// Page is the slice of the Confluence content representation this client
// needs: identity, title, version counter and the storage format body.
type Page struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
}

// GetPage fetches a page with its storage body and version.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	endpoint, err := url.JoinPath(c.BaseURL, "rest/api/content", pageID)
	if err != nil {
		return nil, httpError(err, "build page url", pageID)
	}
	endpoint += "?expand=body.storage,version"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, httpError(err, "build page request", pageID)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	serviceLogger.Debug("Fetching page", "page_id", pageID)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, httpError(err, "fetch page", pageID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serviceLogger.Error("Page fetch failed", "page_id", pageID, "status", resp.StatusCode)
		return nil, httpError(fmt.Errorf("unexpected status %s", resp.Status), "fetch page", pageID)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, httpError(err, "decode page", pageID)
	}
	return &page, nil
}

// updatePayload is the request body of the content update API.
type updatePayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
}

// UpdatePage replaces the page's storage body, bumping the version counter
// as the API requires.
func (c *Client) UpdatePage(ctx context.Context, page *Page, newBody string) error {
	endpoint, err := url.JoinPath(c.BaseURL, "rest/api/content", page.ID)
	if err != nil {
		return httpError(err, "build update url", page.ID)
	}

	payload := updatePayload{
		ID:    page.ID,
		Type:  "page",
		Title: page.Title,
	}
	payload.Version.Number = page.Version.Number + 1
	payload.Body.Storage.Value = newBody
	payload.Body.Storage.Representation = "storage"

	body, err := json.Marshal(payload)
	if err != nil {
		return httpError(err, "encode update", page.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return httpError(err, "build update request", page.ID)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	serviceLogger.Debug("Updating page", "page_id", page.ID, "new_version", payload.Version.Number)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return httpError(err, "update page", page.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serviceLogger.Error("Page update failed", "page_id", page.ID, "status", resp.StatusCode)
		return httpError(fmt.Errorf("unexpected status %s", resp.Status), "update page", page.ID)
	}

	serviceLogger.Info("Page updated", "page_id", page.ID, "version", payload.Version.Number)
	return nil
}

// LoadToken reads the personal access token from a secrets JSON file,
// stored under the "PAT" key.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.New(err).
			Component("confluence").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	var secrets map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return "", errors.New(err).
			Component("confluence").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	token, ok := secrets["PAT"]
	if !ok || token == "" {
		return "", errors.Newf("secrets file %s has no PAT entry", path).
			Component("confluence").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return token, nil
}

func httpError(err error, operation, pageID string) error {
	return errors.New(err).
		Component("confluence").
		Category(errors.CategoryHTTP).
		Context("operation", operation).
		Context("page_id", pageID).
		Build()
}
