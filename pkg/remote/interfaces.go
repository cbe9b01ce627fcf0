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

// Package remote defines the contracts for talking to the remote content
// service. The orchestration core only ever sees these interfaces; the
// wire protocol, auth and session handling live behind an implementation
// registered at startup.
package remote

import (
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔑 AccessType classifies how a source collection is reached
type AccessType string

const (
	// AccessPublic collections are readable with the standard client
	AccessPublic AccessType = "public"
	// AccessPrivate collections require an elevated-privilege session
	AccessPrivate AccessType = "private"
)

// 🎬 ContentCategory is the closed set of item kinds the service accepts.
// The transfer step dispatches on it with a single exhaustive switch, so
// adding a kind is a compile-time-checked change.
type ContentCategory int

const (
	CategoryUnknown ContentCategory = iota
	CategoryText
	CategoryPhoto
	CategoryVideo
	CategoryAudio
	CategoryVoice
	CategoryDocument
	CategoryAnimation
	CategoryVideoNote
	CategorySticker
)

// String returns a string representation of ContentCategory
func (c ContentCategory) String() string {
	switch c {
	case CategoryText:
		return "text"
	case CategoryPhoto:
		return "photo"
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	case CategoryVoice:
		return "voice"
	case CategoryDocument:
		return "document"
	case CategoryAnimation:
		return "animation"
	case CategoryVideoNote:
		return "video_note"
	case CategorySticker:
		return "sticker"
	default:
		return "unknown"
	}
}

// 📄 Item is a single content unit fetched from a source collection
type Item struct {
	ID         int64           // Item identifier within the collection
	Collection string          // Source collection identifier
	Category   ContentCategory // Detected content kind
	Name       string          // Display name for staged media
	Size       int64           // Declared size in bytes (0 if unknown)
	Caption    string          // Caption carried alongside media
	Text       string          // Body for text items
	Body       io.ReadCloser   // Media payload; nil for text items
}

// 📈 ProgressFunc receives raw byte counters during a fetch or send
type ProgressFunc func(current, total int64)

// Sentinel errors the pipeline branches on. Transport errors that are
// neither of these are treated as transient and retried.
var (
	ErrNotFound     = errors.New("item not found")
	ErrAccessDenied = errors.New("access denied")
)

// Client is the primary interface for interacting with the remote content
// service. Fetching branches on access type, sending branches on content
// category, mirroring the per-kind endpoints the service exposes.
type Client interface {
	// Name returns the name of the client implementation (e.g. "http")
	Name() string
	// FetchItem retrieves one item by identifier. Returns ErrNotFound when
	// the item does not exist or is deleted, ErrAccessDenied when the
	// collection needs a capability this client lacks.
	FetchItem(ctx context.Context, collection string, itemID int64, access AccessType, onProgress ProgressFunc) (*Item, error)
	// JoinSource joins a source collection so subsequent fetches succeed
	JoinSource(ctx context.Context, collection string, access AccessType) error

	Sender
}

// Sender sends one staged item to a destination collection, one method
// per content kind. Text has no staging path.
type Sender interface {
	SendText(ctx context.Context, destination int64, text string) error
	SendPhoto(ctx context.Context, destination int64, path, caption string, onProgress ProgressFunc) error
	SendVideo(ctx context.Context, destination int64, path, caption string, onProgress ProgressFunc) error
	SendAudio(ctx context.Context, destination int64, path, caption string, onProgress ProgressFunc) error
	SendVoice(ctx context.Context, destination int64, path string, onProgress ProgressFunc) error
	SendDocument(ctx context.Context, destination int64, path, caption string, onProgress ProgressFunc) error
	SendAnimation(ctx context.Context, destination int64, path, caption string, onProgress ProgressFunc) error
	SendVideoNote(ctx context.Context, destination int64, path string, onProgress ProgressFunc) error
	SendSticker(ctx context.Context, destination int64, path string, onProgress ProgressFunc) error
}

var registry = map[string]Client{}

// RegisterClient makes a client implementation available by name
func RegisterClient(name string, client Client) {
	registry[name] = client
}

// GetClient resolves a registered client by name
func GetClient(name string) (Client, error) {
	client, ok := registry[name]
	if !ok {
		options := []string{}
		for k := range registry {
			options = append(options, k)
		}
		return nil, errors.Errorf("client %s not found, options: %s", name, strings.Join(options, ", "))
	}
	return client, nil
}
