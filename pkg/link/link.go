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

// Package link parses t.me item links into the (collection, item,
// access type) triple the orchestration core works with.
package link

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gurr-i/tgsaver/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🔗 Link is a parsed item reference
type Link struct {
	Collection string            // Username (public) or -100-prefixed id (private)
	ItemID     int64             // Item identifier within the collection
	Access     remote.AccessType // public or private
}

var (
	// Private collection links, including thread links where the item id
	// is the last path segment
	privatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https://t\.me/c/(\d+)/(\d+)/?(?:\?[^/]*)?$`),
		regexp.MustCompile(`^https://t\.me/c/(\d+)/\d+/(\d+)/?(?:\?[^/]*)?$`),
	}

	publicPattern = regexp.MustCompile(`^https://t\.me/([^/?]+)/(\d+)/?(?:\?[^/]*)?$`)

	// Usernames: 3-32 chars, alphanumeric plus underscore, no leading or
	// trailing underscore
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_]*[a-zA-Z0-9]$`)
)

// Parse extracts the collection, item id and access type from an item
// link. Links without a protocol prefix are accepted.
func Parse(raw string) (Link, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Link{}, errors.New("empty link")
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		if !strings.Contains(s, "t.me/") {
			return Link{}, errors.Errorf("unsupported link format: %s", raw)
		}
		s = "https://" + s[strings.Index(s, "t.me/"):]
	}
	s = strings.Replace(s, "http://", "https://", 1)

	for _, pattern := range privatePatterns {
		if m := pattern.FindStringSubmatch(s); m != nil {
			itemID, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				return Link{}, errors.Errorf("parsing item id: %w", err)
			}
			return Link{
				Collection: "-100" + m[1],
				ItemID:     itemID,
				Access:     remote.AccessPrivate,
			}, nil
		}
	}

	if m := publicPattern.FindStringSubmatch(s); m != nil {
		username := m[1]
		if len(username) < 3 || len(username) > 32 {
			return Link{}, errors.Errorf("invalid username format: %s", username)
		}
		if !usernamePattern.MatchString(username) {
			return Link{}, errors.Errorf("invalid username format: %s", username)
		}
		itemID, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Link{}, errors.Errorf("parsing item id: %w", err)
		}
		return Link{
			Collection: username,
			ItemID:     itemID,
			Access:     remote.AccessPublic,
		}, nil
	}

	return Link{}, errors.Errorf("unsupported link format: %s", raw)
}
