package vfsbox

import (
	"strconv"
	"strings"
)

// NameParams holds the query parameters of a URI-style file name.
// Later duplicates of a key win, matching the parse order of SplitName.
type NameParams map[string]string

// SplitName splits a URI-style file name into its path and query
// parameters. Names look like "path?key=val&key2=val2"; an optional
// "file:" scheme prefix is stripped. Unlike RFC 3986 URIs, no
// percent-decoding is applied: a literal '%' or '+' in a path must
// survive a round-trip through the provider unchanged.
func SplitName(name string) (path string, params NameParams) {
	path = strings.TrimPrefix(name, "file:")

	path, query, ok := strings.Cut(path, "?")
	if !ok {
		return path, nil
	}

	params = make(NameParams)
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if pair == "" {
			continue
		}
		key, val, _ := strings.Cut(pair, "=")
		params[key] = val
	}
	return path, params
}

// Int64 returns the value of key as a signed integer, accepting decimal
// or 0x-prefixed hexadecimal. Missing or malformed values yield def.
func (p NameParams) Int64(key string, def int64) int64 {
	s, ok := p[key]
	if !ok {
		return def
	}
	v, err := parseInt(s)
	if err != nil {
		return def
	}
	return v
}

// Uint64 is like Int64 for unsigned values. Negative or malformed
// values yield def.
func (p NameParams) Uint64(key string, def uint64) uint64 {
	s, ok := p[key]
	if !ok {
		return def
	}
	v, err := parseInt(s)
	if err != nil || v < 0 {
		return def
	}
	return uint64(v)
}

// Bool returns the value of key interpreted as an integer flag:
// anything greater than zero is true. Missing or malformed values
// yield def.
func (p NameParams) Bool(key string, def bool) bool {
	s, ok := p[key]
	if !ok {
		return def
	}
	v, err := parseInt(s)
	if err != nil {
		return def
	}
	return v > 0
}

func parseInt(s string) (int64, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v uint64
	var err error
	if rest, ok := cutHexPrefix(s); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

func cutHexPrefix(s string) (string, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], true
	}
	return s, false
}
