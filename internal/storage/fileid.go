package storage

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareFileIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
	pathFileIDRegex = regexp.MustCompile(`/d/([a-zA-Z0-9_-]{10,})`)
)

// ExtractDriveFileID accepts a bare Drive file id or a drive.google.com /
// docs.google.com link and returns the file id.
func ExtractDriveFileID(input string) (string, bool) {
	value := strings.TrimSpace(input)
	if value == "" {
		return "", false
	}
	if bareFileIDRegex.MatchString(value) {
		return value, true
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	isDrive := host == "drive.google.com" || strings.HasSuffix(host, ".drive.google.com")
	isDocs := host == "docs.google.com" || strings.HasSuffix(host, ".docs.google.com")
	if !isDrive && !isDocs {
		return "", false
	}

	if m := pathFileIDRegex.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}
	if id := u.Query().Get("id"); bareFileIDRegex.MatchString(id) {
		return id, true
	}
	return "", false
}

// IsPlainObjectKey reports whether input can be used as-is as an object
// key: non-empty, not a URL, no parent segments or control characters.
func IsPlainObjectKey(input string) bool {
	value := strings.TrimSpace(input)
	if value == "" || len(value) > 1024 || strings.Contains(value, "://") || strings.HasPrefix(value, "/") {
		return false
	}
	for _, seg := range strings.Split(value, "/") {
		if seg == ".." {
			return false
		}
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// ResolveFileID reduces Drive links to their file id and trims anything else.
func ResolveFileID(input string) string {
	if id, ok := ExtractDriveFileID(input); ok {
		return id
	}
	return strings.TrimSpace(input)
}
