// Copyright 2025 gurr-i
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpapi implements the remote client interface against an
// HTTP content service. Item metadata and payloads come from
// /collections/{collection}/items/{id}; deliveries go to
// /destinations/{id}/{kind} as multipart uploads.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Client implements remote.Client over HTTP
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// 🎛️ Options configures a Client
type Options struct {
	// BaseURL is the service root, e.g. https://content.example.com
	BaseURL string
	// Token authenticates every request. Private collections may require
	// a token with elevated capabilities.
	Token string
	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// 🏭 New creates a Client and registers it under the name "http"
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Errorf("parsing base URL: %w", err)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	c := &Client{base: base, token: opts.Token, http: opts.HTTPClient}
	remote.RegisterClient(c.Name(), c)
	return c, nil
}

// Name returns the name of the client implementation
func (c *Client) Name() string { return "http" }

// itemMeta is the metadata envelope the service returns per item.
type itemMeta struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Caption  string `json:"caption"`
	Text     string `json:"text"`
}

func parseCategory(s string) remote.ContentCategory {
	switch s {
	case "text":
		return remote.CategoryText
	case "photo":
		return remote.CategoryPhoto
	case "video":
		return remote.CategoryVideo
	case "audio":
		return remote.CategoryAudio
	case "voice":
		return remote.CategoryVoice
	case "document":
		return remote.CategoryDocument
	case "animation":
		return remote.CategoryAnimation
	case "video_note":
		return remote.CategoryVideoNote
	case "sticker":
		return remote.CategorySticker
	default:
		return remote.CategoryUnknown
	}
}

func (c *Client) endpoint(parts ...string) string {
	return c.base.JoinPath(parts...).String()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Errorf("sending request: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return resp, nil
	case http.StatusNotFound, http.StatusGone:
		resp.Body.Close()
		return nil, remote.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, remote.ErrAccessDenied
	default:
		resp.Body.Close()
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// FetchItem retrieves one item's metadata and opens its payload stream
func (c *Client) FetchItem(ctx context.Context, collection string, itemID int64, access remote.AccessType, onProgress remote.ProgressFunc) (*remote.Item, error) {
	logger := zerolog.Ctx(ctx)

	id := strconv.FormatInt(itemID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("collections", collection, "items", id), nil)
	if err != nil {
		return nil, errors.Errorf("creating metadata request: %w", err)
	}
	if access == remote.AccessPrivate {
		req.Header.Set("X-Access", "private")
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meta itemMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, errors.Errorf("decoding item metadata: %w", err)
	}

	item := &remote.Item{
		ID:         meta.ID,
		Collection: collection,
		Category:   parseCategory(meta.Category),
		Name:       meta.Name,
		Size:       meta.Size,
		Caption:    meta.Caption,
		Text:       meta.Text,
	}
	if item.Category == remote.CategoryText {
		return item, nil
	}
	if item.Name == "" {
		item.Name = fmt.Sprintf("item-%d", meta.ID)
	}

	logger.Debug().
		Int64("item_id", itemID).
		Str("category", meta.Category).
		Int64("size", meta.Size).
		Msg("opening item payload")

	body, err := c.openPayload(ctx, collection, id, access)
	if err != nil {
		return nil, err
	}
	item.Body = body
	return item, nil
}

func (c *Client) openPayload(ctx context.Context, collection, id string, access remote.AccessType) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("collections", collection, "items", id, "content"), nil)
	if err != nil {
		return nil, errors.Errorf("creating content request: %w", err)
	}
	if access == remote.AccessPrivate {
		req.Header.Set("X-Access", "private")
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// JoinSource joins a source collection so subsequent fetches succeed
func (c *Client) JoinSource(ctx context.Context, collection string, access remote.AccessType) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("collections", collection, "join"), nil)
	if err != nil {
		return errors.Errorf("creating join request: %w", err)
	}
	if access == remote.AccessPrivate {
		req.Header.Set("X-Access", "private")
	}
	resp, err := c.do(req)
	if err != nil {
		return errors.Errorf("joining %s: %w", collection, err)
	}
	resp.Body.Close()
	return nil
}

// SendText sends a text item to a destination
func (c *Client) SendText(ctx context.Context, destination int64, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return errors.Errorf("marshaling text payload: %w", err)
	}
	dest := strconv.FormatInt(destination, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("destinations", dest, "text"), bytes.NewReader(payload))
	if err != nil {
		return errors.Errorf("creating text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return errors.Errorf("sending text: %w", err)
	}
	resp.Body.Close()
	return nil
}

// upload streams one staged file to a destination kind endpoint as
// multipart form data.
func (c *Client) upload(ctx context.Context, destination int64, kind, path, caption string, onProgress remote.ProgressFunc) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Errorf("opening staged file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.Errorf("sizing staged file: %w", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := io.Reader(file)
		if onProgress != nil {
			src = &progressReader{r: file, total: info.Size(), tick: onProgress}
		}
		buf := make([]byte, perf.OptimalChunkSize(info.Size()))
		if _, err := io.CopyBuffer(part, src, buf); err != nil {
			pw.CloseWithError(err)
			return
		}
		if caption != "" {
			if err := writer.WriteField("caption", caption); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(writer.Close())
	}()

	dest := strconv.FormatInt(destination, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("destinations", dest, kind), pr)
	if err != nil {
		return errors.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return errors.Errorf("uploading %s: %w", kind, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) SendPhoto(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "photo", path, caption, onProgress)
}

func (c *Client) SendVideo(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "video", path, caption, onProgress)
}

func (c *Client) SendAudio(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "audio", path, caption, onProgress)
}

func (c *Client) SendVoice(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "voice", path, "", onProgress)
}

func (c *Client) SendDocument(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "document", path, caption, onProgress)
}

func (c *Client) SendAnimation(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "animation", path, caption, onProgress)
}

func (c *Client) SendVideoNote(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "video_note", path, "", onProgress)
}

func (c *Client) SendSticker(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return c.upload(ctx, destination, "sticker", path, "", onProgress)
}

// progressReader reports bytes as they stream out of a staged file.
type progressReader struct {
	r     io.Reader
	n     int64
	total int64
	tick  remote.ProgressFunc
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.n += int64(n)
		pr.tick(pr.n, pr.total)
	}
	return n, err
}
