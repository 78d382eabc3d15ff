package filter

import "strings"

const doubleWildcard = "**"

// MatchPath reports whether path matches the Ant-style pattern.
// Trailing slashes on path are ignored, so "/admin/" matches "/admin".
func MatchPath(pattern, path string) bool {
	return matchSegments(splitPath(pattern), splitPath(normalizePath(path)))
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func matchSegments(pattern, path []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == doubleWildcard {
			rest := pattern[1:]
			for len(rest) > 0 && rest[0] == doubleWildcard {
				rest = rest[1:]
			}
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(path); i++ {
				if matchSegments(rest, path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 || !matchSegment(pattern[0], path[0]) {
			return false
		}
		pattern, path = pattern[1:], path[1:]
	}
	return len(path) == 0
}

// matchSegment is a glob match of one segment where '*' stops at nothing
// (segments contain no '/').
func matchSegment(pattern, s string) bool {
	px, sx := 0, 0
	starPx, starSx := -1, 0
	for sx < len(s) {
		switch {
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == s[sx]):
			px++
			sx++
		case px < len(pattern) && pattern[px] == '*':
			starPx, starSx = px, sx
			px++
		case starPx >= 0:
			px = starPx + 1
			starSx++
			sx = starSx
		default:
			return false
		}
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}
