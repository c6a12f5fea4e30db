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

// Package assetid holds the identifier shared by every asset-derived record.
package assetid

import (
	"fmt"
	"strconv"
	"strings"
)

// ID uniquely identifies an asset as customer/space/name. It is the join key
// for asset, location, and storage rows and is immutable once created.
type ID struct {
	Customer int
	Space    int
	Name     string
}

func New(customer, space int, name string) ID {
	return ID{Customer: customer, Space: space, Name: name}
}

// String returns the canonical "{customer}/{space}/{name}" form.
func (id ID) String() string {
	return fmt.Sprintf("%d/%d/%s", id.Customer, id.Space, id.Name)
}

// Parse converts the canonical string form back to an ID. The name portion
// may itself contain slashes.
func Parse(s string) (ID, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[2] == "" {
		return ID{}, fmt.Errorf("invalid asset id %q", s)
	}
	customer, err := strconv.Atoi(parts[0])
	if err != nil {
		return ID{}, fmt.Errorf("invalid customer in asset id %q: %w", s, err)
	}
	space, err := strconv.Atoi(parts[1])
	if err != nil {
		return ID{}, fmt.Errorf("invalid space in asset id %q: %w", s, err)
	}
	return ID{Customer: customer, Space: space, Name: parts[2]}, nil
}

// UniqueName returns the name portion with path separators flattened, safe
// for use as an on-disk file name.
func (id ID) UniqueName() string {
	return strings.ReplaceAll(id.Name, "/", "_")
}
