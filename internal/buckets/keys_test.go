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

package buckets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardinalhq/mediarunner/internal/assetid"
)

func TestKeyGenerator(t *testing.T) {
	g := KeyGenerator{
		StorageBucket:         "storage",
		TimebasedInputBucket:  "tb-in",
		TimebasedOutputBucket: "tb-out",
		Region:                "eu-west-1",
	}
	id := assetid.New(99, 1, "clip")

	assert.Equal(t, ObjectInBucket{Bucket: "storage", Key: "99/1/clip", Region: "eu-west-1"}, g.StorageLocation(id))
	assert.Equal(t, ObjectInBucket{Bucket: "tb-in", Key: "99/1/clip", Region: "eu-west-1"}, g.TimebasedInputLocation(id))
	assert.Equal(t, "99/1/clip/transcode/job-7.mp4", g.TimebasedOutputLocation(id, "job-7", ".mp4").Key)
	assert.Equal(t, "99/1/clip/metadata", g.MetadataKey(id).Key)
	assert.Equal(t, "99/1/clip/full/job-7.mp4", g.FinalDestination(id, "99/1/clip/transcode/job-7.mp4").Key)
}
