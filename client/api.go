package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"scorelib/model"
)

// ErrNotFound is returned when the server reports 404 for an id.
var ErrNotFound = errors.New("score not found")

// API is the HTTP client for the catalog service.
type API struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPI creates an API client against a base URL like "http://host:5000".
func NewAPI(baseURL string) *API {
	return &API{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

// UploadResponse is the server's answer to a successful submission. The
// filename is the true blob key as stored, not derived from the id.
type UploadResponse struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// progressReader counts bytes as the transport consumes the request body
// and reports them to the session's progress callback.
type progressReader struct {
	r          io.Reader
	sent       int64
	total      int64
	onProgress func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}

// ListScores fetches the confirmed catalog for a search term and filter,
// newest first.
func (a *API) ListScores(ctx context.Context, term string, aCappellaOnly bool) ([]*model.Score, error) {
	params := url.Values{}
	if term != "" {
		params.Set("q", term)
	}
	if aCappellaOnly {
		params.Set("a_cappella", "1")
	}

	endpoint := a.BaseURL + "/api/scores"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scores: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching scores", resp.StatusCode)
	}

	var scores []*model.Score
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	return scores, nil
}

// Upload submits metadata plus a PDF as multipart form data, reporting
// transfer progress through onProgress as the body is consumed.
func (a *API) Upload(ctx context.Context, meta Metadata, filename string, file io.Reader, size int64, onProgress func(sent, total int64)) (*UploadResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"title":    meta.Title,
		"arranger": meta.Arranger,
		"style":    meta.Style,
		"tempo":    meta.Tempo,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}
	aCappella := "0"
	if meta.ACappella {
		aCappella = "1"
	}
	if err := writer.WriteField("a_cappella", aCappella); err != nil {
		return nil, fmt.Errorf("failed to write form field a_cappella: %w", err)
	}

	part, err := writer.CreateFormFile("pdf", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to buffer file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	total := int64(body.Len())
	reader := &progressReader{r: body, total: total, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/upload", reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = total

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}

// DeleteScore removes a score by id. ErrNotFound if the server has no such
// id.
func (a *API) DeleteScore(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/api/scores/%d", a.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete score: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("unexpected status %d deleting score %d", resp.StatusCode, id)
	}
}
