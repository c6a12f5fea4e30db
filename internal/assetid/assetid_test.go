// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package assetid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	id := New(99, 1, "my-image.tiff")
	assert.Equal(t, "99/1/my-image.tiff", id.String())

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseNameWithSlashes(t *testing.T) {
	parsed, err := Parse("5/10/folder/nested/file.jp2")
	require.NoError(t, err)
	assert.Equal(t, 5, parsed.Customer)
	assert.Equal(t, 10, parsed.Space)
	assert.Equal(t, "folder/nested/file.jp2", parsed.Name)
	assert.Equal(t, "folder_nested_file.jp2", parsed.UniqueName())
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "1", "1/2", "1/2/", "x/2/name", "1/y/name"} {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
	}
}
