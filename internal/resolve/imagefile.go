package resolve

import (
	"net/url"
	"path"
	"strings"
)

var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"png":  true,
}

// IsImageFile reports whether rawURL parses as a URL whose path ends in a
// jpg, jpeg, gif or png extension, in any letter case. The query string and
// fragment are ignored.
func IsImageFile(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	ext := strings.TrimPrefix(path.Ext(path.Base(u.Path)), ".")
	return imageExtensions[strings.ToLower(ext)]
}
