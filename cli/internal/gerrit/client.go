// Package gerrit provides the HTTP client for a Gerrit code review server:
// change lookup, file content retrieval and review publishing. Responses
// carry Gerrit's ")]}'" cross-site-scripting protection marker, which is
// verified and stripped before decoding.
package gerrit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/haiku/haiku-format-bot/cli/internal/change"
	"github.com/haiku/haiku-format-bot/cli/internal/erruser"
)

const _defaultTimeout = 30 * time.Second

// xssiMarker prefixes every JSON body Gerrit returns.
const xssiMarker = ")]}'"

// ErrUnreachable indicates the Gerrit server could not be reached or did not
// answer like a Gerrit server (connection failure, non-200, missing marker).
var ErrUnreachable = errors.New("gerrit server unreachable")

// Context talks to one Gerrit instance. Zero value is not valid; use
// NewContext.
type Context struct {
	baseURL    string
	httpClient *http.Client
	user       string
	password   string
}

// NewContext builds a client for the Gerrit instance at baseURL (e.g.
// https://review.haiku-os.org/). If httpClient is nil, a default client with
// a 30s timeout is used.
func NewContext(baseURL string, httpClient *http.Client) *Context {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: _defaultTimeout}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Context{baseURL: baseURL, httpClient: httpClient}
}

// SetBasicAuth makes all requests authenticated. Gerrit serves
// authenticated requests under the "a/" path prefix; publishing a review
// requires this.
func (c *Context) SetBasicAuth(user, password string) {
	c.user = user
	c.password = password
}

// url joins the endpoint path to the base URL, inserting the authenticated
// prefix when credentials are set.
func (c *Context) url(path string) string {
	if c.user != "" {
		return c.baseURL + "/a/" + path
	}
	return c.baseURL + "/" + path
}

func (c *Context) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	return req, nil
}

// get performs a GET and returns the raw body for a 200 response.
func (c *Context) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnreachable, resp.StatusCode, requestURL)
	}
	return body, nil
}

// decodeJSON strips the XSSI marker and decodes the remainder into v.
func decodeJSON(body []byte, v interface{}) error {
	if !bytes.HasPrefix(body, []byte(xssiMarker)) {
		return fmt.Errorf("%w: response does not start with the %q marker", ErrUnreachable, xssiMarker)
	}
	return json.Unmarshal(body[len(xssiMarker):], v)
}

// Check verifies the configured URL answers like a Gerrit server. The error
// wraps ErrUnreachable when it does not.
func (c *Context) Check(ctx context.Context) error {
	body, err := c.get(ctx, c.url("changes/"))
	if err != nil {
		return fmt.Errorf("gerrit changes: %w", err)
	}
	if !bytes.HasPrefix(body, []byte(xssiMarker)) {
		return fmt.Errorf("gerrit changes: %w: response does not start with the %q marker", ErrUnreachable, xssiMarker)
	}
	return nil
}

// ChangeFromNumber resolves a change number (the numeric id in Gerrit URLs)
// to the change id and its current revision id.
func (c *Context) ChangeFromNumber(ctx context.Context, number int) (changeID, revisionID string, err error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("change:%d", number))
	query.Set("o", "CURRENT_REVISION")
	body, err := c.get(ctx, c.url("changes/")+"?"+query.Encode())
	if err != nil {
		return "", "", fmt.Errorf("gerrit changes: %w", err)
	}
	var changes []struct {
		ID              string `json:"id"`
		CurrentRevision string `json:"current_revision"`
	}
	if err := decodeJSON(body, &changes); err != nil {
		return "", "", fmt.Errorf("gerrit changes: %w", err)
	}
	if len(changes) == 0 {
		return "", "", erruser.New(fmt.Sprintf("No change found for number %d.", number), nil)
	}
	return changes[0].ID, changes[0].CurrentRevision, nil
}

// FetchChange retrieves the file list of a revision and the contents of
// every file on both sides of the patch. Files are ordered by name; the
// server returns them as an unordered object. Deleted files have no patch
// contents and added files no base contents.
func (c *Context) FetchChange(ctx context.Context, changeID, revisionID string) (*change.Change, error) {
	revisionURL := c.url(fmt.Sprintf("changes/%s/revisions/%s/", changeID, revisionID))
	body, err := c.get(ctx, revisionURL+"files")
	if err != nil {
		return nil, fmt.Errorf("gerrit files: %w", err)
	}
	var fileInfos map[string]struct {
		// Status is one of A (added), D (deleted), R, C, W or M; Gerrit
		// omits it for plain modifications.
		Status string `json:"status"`
	}
	if err := decodeJSON(body, &fileInfos); err != nil {
		return nil, fmt.Errorf("gerrit files: %w", err)
	}

	filenames := make([]string, 0, len(fileInfos))
	for name := range fileInfos {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	files := make([]change.File, 0, len(filenames))
	for _, name := range filenames {
		status := fileInfos[name].Status
		if status == "" {
			status = "M"
		}
		contentURL := revisionURL + "files/" + url.PathEscape(name) + "/content"
		var base, patch []string
		if status != "D" {
			patch, err = c.fileContent(ctx, contentURL)
			if err != nil {
				return nil, err
			}
		}
		if status != "A" {
			base, err = c.fileContent(ctx, contentURL+"?parent=1")
			if err != nil {
				return nil, err
			}
		}
		f, err := change.NewFile(name, base, patch)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return &change.Change{ID: changeID, Files: files}, nil
}

// fileContent fetches one side of a file. Gerrit returns the contents
// base64 encoded.
func (c *Context) fileContent(ctx context.Context, contentURL string) ([]string, error) {
	body, err := c.get(ctx, contentURL)
	if err != nil {
		return nil, fmt.Errorf("gerrit content: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("gerrit content: decode %s: %w", contentURL, err)
	}
	return change.SplitLines(string(decoded)), nil
}

// PublishReview posts the review to the given change and revision. Gerrit
// requires authentication for this endpoint; call SetBasicAuth first.
func (c *Context) PublishReview(ctx context.Context, changeID, revisionID string, review ReviewInput) error {
	payload, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("gerrit review: %w", err)
	}
	endpoint := c.url(fmt.Sprintf("changes/%s/revisions/%s/review", changeID, revisionID))
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gerrit review: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gerrit review: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gerrit review: HTTP %d from %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(body)))
	}
	return nil
}
