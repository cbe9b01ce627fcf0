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

package httpapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/gurr-i/tgsaver/pkg/remote/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.Handler) *httpapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := httpapi.New(context.Background(), httpapi.Options{
		BaseURL: srv.URL,
		Token:   "test-token",
	})
	require.NoError(t, err)
	return client
}

// 🧪 TestFetchItemMedia tests metadata plus payload retrieval
func TestFetchItemMedia(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/somechannel/items/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":42,"category":"document","name":"report.pdf","size":11,"caption":"the report"}`))
	})
	mux.HandleFunc("/collections/somechannel/items/42/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf-payload"))
	})
	client := newClient(t, mux)

	item, err := client.FetchItem(context.Background(), "somechannel", 42, remote.AccessPublic, nil)
	require.NoError(t, err)
	defer item.Body.Close()

	assert.Equal(t, int64(42), item.ID)
	assert.Equal(t, remote.CategoryDocument, item.Category)
	assert.Equal(t, "report.pdf", item.Name)
	assert.Equal(t, int64(11), item.Size)
	assert.Equal(t, "the report", item.Caption)

	payload, err := io.ReadAll(item.Body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-payload", string(payload))
}

// 🧪 TestFetchItemText tests that text items skip the payload request
func TestFetchItemText(t *testing.T) {
	var contentCalled bool
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/somechannel/items/7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"category":"text","text":"hello"}`))
	})
	mux.HandleFunc("/collections/somechannel/items/7/content", func(w http.ResponseWriter, r *http.Request) {
		contentCalled = true
	})
	client := newClient(t, mux)

	item, err := client.FetchItem(context.Background(), "somechannel", 7, remote.AccessPublic, nil)
	require.NoError(t, err)

	assert.Equal(t, remote.CategoryText, item.Category)
	assert.Equal(t, "hello", item.Text)
	assert.Nil(t, item.Body)
	assert.False(t, contentCalled)
}

// 🧪 TestStatusMapping tests the sentinel error mapping
func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not_found", status: http.StatusNotFound, wantErr: remote.ErrNotFound},
		{name: "gone", status: http.StatusGone, wantErr: remote.ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: remote.ErrAccessDenied},
		{name: "forbidden", status: http.StatusForbidden, wantErr: remote.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.FetchItem(context.Background(), "somechannel", 1, remote.AccessPublic, nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("server_error_is_transient", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.FetchItem(context.Background(), "somechannel", 1, remote.AccessPublic, nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, remote.ErrNotFound)
		assert.NotErrorIs(t, err, remote.ErrAccessDenied)
	})
}

// 🧪 TestSendText tests text delivery
func TestSendText(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/destinations/777/text", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
	})
	client := newClient(t, mux)

	require.NoError(t, client.SendText(context.Background(), 777, "hello"))
	assert.JSONEq(t, `{"text":"hello"}`, got)
}

// 🧪 TestUpload tests a multipart media delivery with progress reporting
func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o644))

	var gotFile, gotCaption string
	mux := http.NewServeMux()
	mux.HandleFunc("/destinations/777/video", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		gotCaption = r.FormValue("caption")
		assert.Equal(t, "clip.mp4", header.Filename)
	})
	client := newClient(t, mux)

	var lastCurrent, lastTotal int64
	err := client.SendVideo(context.Background(), 777, path, "a clip", func(current, total int64) {
		lastCurrent, lastTotal = current, total
	})
	require.NoError(t, err)

	assert.Equal(t, "video-bytes", gotFile)
	assert.Equal(t, "a clip", gotCaption)
	assert.Equal(t, int64(len("video-bytes")), lastCurrent)
	assert.Equal(t, int64(len("video-bytes")), lastTotal)
}

// 🧪 TestJoinSource tests the join endpoint and access header
func TestJoinSource(t *testing.T) {
	var gotAccess string
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/-1001234/join", func(w http.ResponseWriter, r *http.Request) {
		gotAccess = r.Header.Get("X-Access")
	})
	client := newClient(t, mux)

	require.NoError(t, client.JoinSource(context.Background(), "-1001234", remote.AccessPrivate))
	assert.Equal(t, "private", gotAccess)
}
