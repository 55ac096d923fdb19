package server

import (
	language "github.com/hanpama/gqlexec/internal/language"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// documentCache keeps parsed documents and their validation errors keyed by a
// hash of the query text. Documents are shared by concurrent executions and
// never mutated.
type documentCache struct {
	lru *lru.Cache[uint64, *cachedDocument]
}

type cachedDocument struct {
	query string
	doc   *language.QueryDocument
	errs  language.ErrorList
}

func newDocumentCache(size int) (*documentCache, error) {
	if size <= 0 {
		return &documentCache{}, nil
	}
	c, err := lru.New[uint64, *cachedDocument](size)
	if err != nil {
		return nil, err
	}
	return &documentCache{lru: c}, nil
}

func (c *documentCache) get(query string) (*language.QueryDocument, language.ErrorList, bool) {
	if c.lru == nil {
		return nil, nil, false
	}
	d, ok := c.lru.Get(xxhash.Sum64String(query))
	if !ok || d.query != query {
		return nil, nil, false
	}
	return d.doc, d.errs, true
}

func (c *documentCache) add(query string, doc *language.QueryDocument, errs language.ErrorList) {
	if c.lru == nil {
		return
	}
	c.lru.Add(xxhash.Sum64String(query), &cachedDocument{query: query, doc: doc, errs: errs})
}

func (c *documentCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
