package i18n

import "strings"

// SplitPath separates a leading locale segment from the rest of the path.
// "/en/auth" yields ("en", "/auth"); "/en" yields ("en", "/").
// ok is false when the first segment is not a supported locale.
func (l Locales) SplitPath(path string) (locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, tail, hasTail := strings.Cut(trimmed, "/")
	if segment == "" || !l.IsSupported(segment) {
		return "", path, false
	}
	if !hasTail {
		return strings.ToLower(segment), "/", true
	}
	return strings.ToLower(segment), "/" + tail, true
}

// HasLocalePrefix reports whether path is "/<locale>" or starts with "/<locale>/".
func (l Locales) HasLocalePrefix(path string) bool {
	_, _, ok := l.SplitPath(path)
	return ok
}

// PrefixPath joins locale and path with exactly one slash between them.
// PrefixPath("en", "/") is "/en/" and PrefixPath("en", "a") is "/en/a".
func PrefixPath(locale, path string) string {
	return "/" + locale + "/" + strings.TrimLeft(path, "/")
}

// LocalizedPath builds an application link for the locale in use, e.g.
// LocalizedPath("de", "/auth") is "/de/auth". The root maps to "/de".
func LocalizedPath(locale, path string) string {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "/" + locale
	}
	return "/" + locale + "/" + path
}
