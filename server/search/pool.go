// Package search runs one Custom Search query against a caller-selected
// credential and tells the caller when to move to the next one.
//
// Rotation state lives entirely in the caller. Each request names the
// credential index to use; on a quota failure the reply carries the index
// to try next. Nothing here loops over keys or remembers which one was
// used last.
package search

import "strings"

// Pool is the ordered set of usable search credentials for one request.
type Pool struct {
	keys []string
}

// NewPool keeps the non-blank keys in order. Configured positions may be
// left empty, so index i in the pool need not be GOOGLE_API_KEY_{i+1}.
func NewPool(keys []string) *Pool {
	p := &Pool{keys: make([]string, 0, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Len returns the number of usable credentials.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Key returns the credential at index i.
func (p *Pool) Key(i int) (string, bool) {
	if i < 0 || i >= len(p.keys) {
		return "", false
	}
	return p.keys[i], true
}
