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

package ingest

import (
	"path"
	"strings"
)

// Explicit extension<->type tables rather than the host OS mime registry:
// origin servers lie often enough that we only trust types we know how to
// process, and a container image has no /etc/mime.types anyway.
var extensionToType = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"png":  "image/png",
	"gif":  "image/gif",
	"jp2":  "image/jp2",
	"bmp":  "image/bmp",
	"pdf":  "application/pdf",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mpg":  "video/mpeg",
	"mpeg": "video/mpeg",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
}

var typeToExtension = func() map[string]string {
	m := make(map[string]string, len(extensionToType))
	for ext, ct := range extensionToType {
		if _, ok := m[ct]; !ok {
			m[ct] = ext
		}
	}
	// preferred extensions where several map to one type
	m["image/jpeg"] = "jpg"
	m["image/tiff"] = "tiff"
	m["video/mpeg"] = "mpg"
	return m
}()

// UnknownExtension is used when neither the content type nor the origin URL
// gives us anything to go on.
const UnknownExtension = "file"

// IsBinaryContentType reports whether a content type carries no real
// information about the payload.
func IsBinaryContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if semi := strings.Index(ct, ";"); semi >= 0 {
		ct = strings.TrimSpace(ct[:semi])
	}
	return ct == "" || ct == "application/octet-stream" || ct == "binary/octet-stream"
}

// ContentTypeForExtension maps a file extension (with or without the dot)
// to a content type, or "" when unknown.
func ContentTypeForExtension(ext string) string {
	return extensionToType[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// ExtensionForContentType maps a content type to a file extension, falling
// back to UnknownExtension.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if semi := strings.Index(ct, ";"); semi >= 0 {
		ct = strings.TrimSpace(ct[:semi])
	}
	if ext, ok := typeToExtension[ct]; ok {
		return ext
	}
	return UnknownExtension
}

// urlExtension pulls the extension off the path part of an origin URL,
// without the dot. Empty when there is none.
func urlExtension(originURL string) string {
	p := originURL
	if q := strings.IndexAny(p, "?#"); q >= 0 {
		p = p[:q]
	}
	ext := path.Ext(p)
	return strings.TrimPrefix(ext, ".")
}

// resolveContentType decides the content type and extension for a
// retrieved binary. An uninformative origin content type is replaced by
// one inferred from the origin URL's extension when possible.
func resolveContentType(originContentType, originURL string) (contentType, extension string) {
	contentType = originContentType
	if IsBinaryContentType(contentType) {
		if inferred := ContentTypeForExtension(urlExtension(originURL)); inferred != "" {
			contentType = inferred
		}
	}
	extension = ExtensionForContentType(contentType)
	if extension == UnknownExtension {
		if fromURL := urlExtension(originURL); fromURL != "" {
			extension = fromURL
		}
	}
	return contentType, extension
}
