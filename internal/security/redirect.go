package security

import "strings"

// IsLocalURL reports whether u is a same-origin relative path that is safe to
// redirect to after login. Absolute URLs, protocol-relative URLs ("//host")
// and backslash tricks ("/\host") are rejected.
func IsLocalURL(u string) bool {
	if u == "" {
		return false
	}
	for _, c := range u {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}

	if strings.HasPrefix(u, "~/") {
		u = u[1:]
	}
	if u[0] != '/' {
		return false
	}
	if len(u) == 1 {
		return true
	}
	return u[1] != '/' && u[1] != '\\'
}

// LocalPath strips the "~" application-root prefix from a local URL
func LocalPath(u string) string {
	return strings.TrimPrefix(u, "~")
}
