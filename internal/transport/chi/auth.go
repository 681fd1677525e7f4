package chi

import (
	"net/http"
	"strings"
)

// Keys are the bearer tokens accepted by the API. ReadOnly keys may query
// datasets but cannot delete documents or change index state.
type Keys struct {
	Full     []string
	ReadOnly []string
}

type keyScope int

const (
	scopeNone keyScope = iota
	scopeRead
	scopeFull
)

// exemptPaths bypass authentication.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// readPosts are POST routes that only read.
var readPosts = map[string]struct{}{
	"/search": {},
	"/count":  {},
	"/facts":  {},
}

// mutates reports whether the request can delete documents or alter an index.
func mutates(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	case http.MethodPost:
		_, ok := readPosts[strings.TrimSuffix(r.URL.Path, "/")]
		return !ok
	default:
		return true
	}
}

// BearerAuthMiddleware validates Bearer tokens against keys.
// With no keys configured authentication is disabled.
func BearerAuthMiddleware(keys Keys) func(http.Handler) http.Handler {
	scopes := make(map[string]keyScope, len(keys.Full)+len(keys.ReadOnly))
	for _, k := range keys.ReadOnly {
		if k != "" {
			scopes[k] = scopeRead
		}
	}
	// a key listed in both sets keeps full access
	for _, k := range keys.Full {
		if k != "" {
			scopes[k] = scopeFull
		}
	}

	return func(next http.Handler) http.Handler {
		if len(scopes) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}
			switch scopes[token] {
			case scopeNone:
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			case scopeRead:
				if mutates(r) {
					writeError(w, http.StatusForbidden, CodeForbidden, "api key is read-only")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
