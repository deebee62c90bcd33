package auth

import "strings"

// ParseTokenHeader extracts the opaque token key from an Authorization
// header of the form "Token <key>". The scheme is matched
// case-insensitively; the split happens on the first space only, so a
// key containing spaces is passed through verbatim (it will simply fail
// lookup). Leading and trailing whitespace around the key is dropped.
// Any malformed header yields ok=false and the caller stays anonymous.
func ParseTokenHeader(header string) (key string, ok bool) {
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "token") {
		return "", false
	}
	key = strings.TrimSpace(rest)
	if key == "" {
		return "", false
	}
	return key, true
}
