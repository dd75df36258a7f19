package cache

import (
	"encoding/json"
	"net/url"
	"strings"
)

// KeyNamespace prefixes every key.
const KeyNamespace = "pokemon"

// Key identifies a cached response.
type Key struct {
	// Prefix names the request kind, e.g. "page", "entry", "type".
	Prefix string

	// Params are the request parameters.
	Params map[string]string
}

// String returns pokemon:<prefix>:<params-json>. Params are encoded with
// sorted keys so equal parameter sets produce equal keys.
//
// Example:
//
//	pokemon:page:{"limit":"100","offset":"0"}
func (k Key) String() string {
	params := k.Params
	if params == nil {
		params = map[string]string{}
	}
	// Marshalling a map[string]string cannot fail and sorts its keys.
	data, _ := json.Marshal(params)
	return KeyNamespace + ":" + k.Prefix + ":" + string(data)
}

// KeyForURL derives a key from a request URL: the first path segment after
// the API root becomes the prefix, the remaining path and the query become
// params.
func KeyForURL(u *url.URL, root string) Key {
	path := strings.Trim(strings.TrimPrefix(u.Path, strings.TrimRight(root, "/")), "/")
	segments := strings.SplitN(path, "/", 2)

	k := Key{Prefix: segments[0], Params: map[string]string{}}
	if len(segments) == 2 && segments[1] != "" {
		k.Params["path"] = segments[1]
	}
	for name := range u.Query() {
		k.Params[name] = u.Query().Get(name)
	}
	return k
}
