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

package link_test

import (
	"testing"

	"github.com/gurr-i/tgsaver/pkg/link"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🧪 TestParse tests link parsing across public, private and thread forms
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    link.Link
		wantErr bool
	}{
		{
			name: "public_link",
			raw:  "https://t.me/somechannel/12345",
			want: link.Link{Collection: "somechannel", ItemID: 12345, Access: remote.AccessPublic},
		},
		{
			name: "private_link",
			raw:  "https://t.me/c/1234567890/42",
			want: link.Link{Collection: "-1001234567890", ItemID: 42, Access: remote.AccessPrivate},
		},
		{
			name: "private_thread_link",
			raw:  "https://t.me/c/1234567890/7/42",
			want: link.Link{Collection: "-1001234567890", ItemID: 42, Access: remote.AccessPrivate},
		},
		{
			name: "no_scheme",
			raw:  "t.me/somechannel/99",
			want: link.Link{Collection: "somechannel", ItemID: 99, Access: remote.AccessPublic},
		},
		{
			name: "http_scheme",
			raw:  "http://t.me/somechannel/99",
			want: link.Link{Collection: "somechannel", ItemID: 99, Access: remote.AccessPublic},
		},
		{
			name: "trailing_slash",
			raw:  "https://t.me/somechannel/12345/",
			want: link.Link{Collection: "somechannel", ItemID: 12345, Access: remote.AccessPublic},
		},
		{
			name: "query_string",
			raw:  "https://t.me/somechannel/12345?single",
			want: link.Link{Collection: "somechannel", ItemID: 12345, Access: remote.AccessPublic},
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "not_a_link",
			raw:     "hello world",
			wantErr: true,
		},
		{
			name:    "username_too_short",
			raw:     "https://t.me/ab/1",
			wantErr: true,
		},
		{
			name:    "username_too_long",
			raw:     "https://t.me/abcdefghijklmnopqrstuvwxyz0123456789/1",
			wantErr: true,
		},
		{
			name:    "missing_item_id",
			raw:     "https://t.me/somechannel",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := link.Parse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
