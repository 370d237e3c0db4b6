package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/report"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://confluence.example.org"
	testPageID  = "44237591"
	testPageURL = testBaseURL + "/rest/api/content/" + testPageID
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(testBaseURL, "token123")
	httpmock.ActivateNonDefault(client.HTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func pageResponse(body string, version int) map[string]any {
	return map[string]any{
		"id":      testPageID,
		"type":    "page",
		"title":   "Phantom Log",
		"version": map[string]any{"number": version},
		"body": map[string]any{
			"storage": map[string]any{"value": body, "representation": "storage"},
		},
	}
}

func TestGetPage(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, pageResponse(samplePageBody, 5)))

	page, err := client.GetPage(context.Background(), testPageID)
	require.NoError(t, err)
	assert.Equal(t, "Phantom Log", page.Title)
	assert.Equal(t, 5, page.Version.Number)
	assert.Contains(t, page.Body.Storage.Value, "<table>")
}

func TestGetPageAuthFailurePropagates(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, "nope"))

	_, err := client.GetPage(context.Background(), testPageID)
	require.Error(t, err)
}

func TestUpdatePageBumpsVersion(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, pageResponse(samplePageBody, 5)))

	var captured updatePayload
	httpmock.RegisterResponder(http.MethodPut, testPageURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			assert.Equal(t, "Bearer token123", req.Header.Get("Authorization"))
			return httpmock.NewJsonResponse(http.StatusOK, pageResponse("", 6))
		})

	page, err := client.GetPage(context.Background(), testPageID)
	require.NoError(t, err)
	require.NoError(t, client.UpdatePage(context.Background(), page, "<p>new body</p>"))

	assert.Equal(t, 6, captured.Version.Number)
	assert.Equal(t, "Phantom Log", captured.Title)
	assert.Equal(t, "<p>new body</p>", captured.Body.Storage.Value)
	assert.Equal(t, "storage", captured.Body.Storage.Representation)
}

func TestNewLogParsesNotes(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, pageResponse(samplePageBody, 5)))

	log, err := newLogWithClient(context.Background(), client, testPageID)
	require.NoError(t, err)
	assert.Equal(t, []report.NoteRecord{
		{ID: "NS001QC", Notes: "ok"},
		{ID: "UC003QC", Notes: "re-scan requested"},
	}, log.Notes())
}

func TestNewLogFailsFastWithoutIDColumn(t *testing.T) {
	client := newTestClient(t)
	body := `<table><tr><th>scan</th><th>notes</th></tr><tr><td>x</td><td>y</td></tr></table>`
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, pageResponse(body, 1)))

	_, err := newLogWithClient(context.Background(), client, testPageID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required columns")
}

func TestPublishRendersDatesAndReplacesTable(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testPageURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, pageResponse(samplePageBody, 5)))

	var captured updatePayload
	httpmock.RegisterResponder(http.MethodPut, testPageURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewJsonResponse(http.StatusOK, pageResponse("", 6))
		})

	log, err := newLogWithClient(context.Background(), client, testPageID)
	require.NoError(t, err)

	rows := []report.Row{{
		Site:           "NS",
		Date:           "2024-01-15",
		Dicom:          "2024-01-16",
		Bids:           "",
		BidsValidation: datastore.FlagUnknown,
		ID:             "NS001QC",
		Notes:          "ok",
	}}
	require.NoError(t, log.Publish(context.Background(), rows))

	body := captured.Body.Storage.Value
	assert.Contains(t, body, "24-01-15", "dates are published as YY-MM-DD")
	assert.Contains(t, body, "24-01-16")
	assert.Contains(t, body, "Phantom scans, refreshed nightly.")
	assert.Contains(t, body, "NS001QC")
	assert.NotContains(t, body, "UC003QC", "old table rows are replaced")
}

func TestLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"PAT":"abc123"}`), 0o600))

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestLoadTokenMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := LoadToken(path)
	require.Error(t, err)
}
