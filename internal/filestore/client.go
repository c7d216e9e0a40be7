// Package filestore is the API tier's client for the file-storage tier.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/pkg/config"
)

// ErrNotFound is returned when the file tier has no blob for an id.
var ErrNotFound = errors.New("blob not found on file storage")

// Client talks to the file-storage tier over HTTP.
//
// Calls that finish with the response (uploads, deletes, health) run under a
// deadline of cfg.Timeout. Streaming reads only bound the wait for response
// headers, so a large archive may take as long as the caller's context allows.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient constructs a client for the file tier at cfg.URL.
func NewClient(cfg config.FileStorageConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Transport: transport},
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Part is one uploaded file forwarded to the file tier.
type Part struct {
	Name   string
	Reader io.Reader
}

// UploadObject stores the archive and optional thumbnail of objectID.
func (c *Client) UploadObject(ctx context.Context, objectID string, archive Part, thumbnail *Part) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		if err := mw.WriteField("objectId", objectID); err != nil {
			return err
		}
		if err := copyPart(mw, "file", archive); err != nil {
			return err
		}
		if thumbnail != nil {
			return copyPart(mw, "thumbnail", *thumbnail)
		}
		return nil
	})
	defer body.Close() //nolint:errcheck

	resp, err := c.do(ctx, http.MethodPost, "/object", body, contentType)
	if err != nil {
		return err
	}
	defer drain(resp)
	return expectOK(resp, "upload object")
}

// FetchObject streams the archive of objectID. Callers close the reader.
func (c *Client) FetchObject(ctx context.Context, objectID string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodPost, "/object/"+url.PathEscape(objectID), nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return nil, ErrNotFound
	}
	if err := expectOK(resp, "fetch object"); err != nil {
		drain(resp)
		return nil, err
	}
	return resp.Body, nil
}

// DeleteObject removes the archive and thumbnail of objectID.
func (c *Client) DeleteObject(ctx context.Context, objectID string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodDelete, "/object/"+url.PathEscape(objectID), nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)
	return expectOK(resp, "delete object")
}

// Thumbnails streams one zip holding the thumbnails of ids.
func (c *Client) Thumbnails(ctx context.Context, ids []string) (io.ReadCloser, error) {
	form := url.Values{}
	for _, id := range ids {
		form.Add("thumbnails", id)
	}
	resp, err := c.do(ctx, http.MethodPost, "/thumbnails",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	if err := expectOK(resp, "fetch thumbnails"); err != nil {
		drain(resp)
		return nil, err
	}
	return resp.Body, nil
}

// UploadPicture stores a profile picture and returns the id the file tier assigned.
func (c *Client) UploadPicture(ctx context.Context, picture Part) (string, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		return copyPart(mw, "file", picture)
	})
	defer body.Close() //nolint:errcheck

	resp, err := c.do(ctx, http.MethodPost, "/picture", body, contentType)
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if err := expectOK(resp, "upload picture"); err != nil {
		return "", err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode picture response: %w", err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("upload picture: empty id in response")
	}
	return payload.ID, nil
}

// Ping checks the health endpoint of the file tier.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)
	return expectOK(resp, "health")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("file storage unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// streamMultipart writes the form produced by fill into a pipe so large archives
// are never buffered in memory.
func streamMultipart(fill func(*multipart.Writer) error) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		if err := fill(mw); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()
	return pr, mw.FormDataContentType()
}

func copyPart(mw *multipart.Writer, field string, part Part) error {
	name := part.Name
	if name == "" {
		name = field
	}
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, part.Reader)
	return err
}

func expectOK(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("%s: file storage responded %d", op, resp.StatusCode)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
