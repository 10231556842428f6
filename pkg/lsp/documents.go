package lsp

import (
	"net/url"
	"strings"
	"sync"

	"github.com/walteh/encapgen/pkg/ast"
)

// normalizeURI turns a file:// URI into a clean path so documents are found
// whatever spelling the client used.
func normalizeURI(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	uri = strings.TrimPrefix(uri, "file://")
	return strings.TrimPrefix(uri, "file:")
}

// Document is an open .encap buffer and the result of its last analysis.
type Document struct {
	URI     string
	Version int
	Content string

	// File is nil when the content does not parse.
	File *ast.File
}

// DocumentManager holds the open documents, keyed by normalized URI.
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

func (m *DocumentManager) Get(uri string) (*Document, bool) {
	doc, ok := m.store.Load(normalizeURI(uri))
	if !ok {
		return nil, false
	}
	return doc.(*Document), true
}

func (m *DocumentManager) Store(uri string, doc *Document) {
	m.store.Store(normalizeURI(uri), doc)
}

func (m *DocumentManager) Delete(uri string) {
	m.store.Delete(normalizeURI(uri))
}

// Len is the number of open documents.
func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
