package config

import "strings"

// SplitServletPath derives the front-controller mapping/prefix pair from one
// raw path value. Input ending in "/*" is treated as a mapping and the prefix
// is the input with that suffix removed; any other input is treated as a
// prefix and the mapping is the input with "/*" appended. Any string is
// acceptable; the two results are always consistent with each other.
func SplitServletPath(raw string) (mapping, prefix string) {
	if strings.HasSuffix(raw, "/*") {
		return raw, raw[:len(raw)-len("/*")]
	}
	return raw + "/*", raw
}
