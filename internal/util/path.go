package util

import "strings"

// Normalize canonicalizes a browser path: trimmed, rooted at "/" and without
// trailing slashes. Empty or blank input yields "".
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "/" {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// Join normalizes each part, drops empty ones and concatenates the rest.
// Parts are expected to be single names or already rooted paths; no
// separator is inserted beyond the leading slash Normalize provides.
func Join(parts ...string) string {
	var sb strings.Builder
	sawRoot := false
	for _, part := range parts {
		n := Normalize(part)
		switch n {
		case "":
			continue
		case "/":
			sawRoot = true
			continue
		}
		sb.WriteString(n)
	}
	if sb.Len() == 0 && sawRoot {
		return "/"
	}
	return sb.String()
}

// Relative returns the part of to that follows from. It is a plain string
// prefix subtraction: from must be an ancestor of to, otherwise the result
// is meaningless.
func Relative(from, to string, noSeparator bool) string {
	f, t := Normalize(from), Normalize(to)
	if len(f) >= len(t) {
		return ""
	}
	res := t[len(f):]
	if noSeparator {
		res = strings.TrimPrefix(res, "/")
	}
	return res
}

// Segments splits the path of p below base into its non-empty names.
func Segments(base, p string) []string {
	rel := Relative(base, p, true)
	var segs []string
	for _, s := range strings.Split(rel, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Dirname returns the normalized parent of p. The parent of a top-level
// entry and of the root is "/".
func Dirname(p string) string {
	p = Normalize(p)
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Basename returns the last element of p, or "" for the root.
func Basename(p string) string {
	p = Normalize(p)
	if p == "" || p == "/" {
		return ""
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// IsWithin reports whether p is base itself or lies below it.
func IsWithin(base, p string) bool {
	b, n := Normalize(base), Normalize(p)
	if b == "/" {
		return strings.HasPrefix(n, "/")
	}
	return n == b || strings.HasPrefix(n, b+"/")
}
