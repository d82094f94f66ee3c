package cache

import (
	"net/url"
	"strings"
)

// Key identifies one API page.
type Key struct {
	// Path is the request path, e.g. "/ergast/f1/2021/5/pitstops.json".
	Path string

	// Query holds limit and offset for paginated endpoints.
	Query url.Values
}

// String renders the key without the namespace prefix. Parameters are
// sorted by name, so equal requests always map to the same key:
//
//	ergast/f1/2021/5/pitstops.json?limit=1000&offset=0
func (k Key) String() string {
	path := strings.Trim(k.Path, "/")
	if len(k.Query) == 0 {
		return path
	}
	return path + "?" + k.Query.Encode()
}
