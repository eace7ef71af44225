package domain

import (
	"fmt"
	"time"

	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "jetkart:"

// MaxCollectionNameLen bounds collection names.
const MaxCollectionNameLen = 64

// Collection binds one dense index, one sparse index and one payload
// index set under a name. Recreation is destructive and atomic from the
// caller's perspective; a collection is never implicitly upgraded.
type Collection struct {
	name      string
	vectorDim int
	vocab     vocab.Vocabulary
	createdAt int64
}

// NewCollection validates and creates a collection.
func NewCollection(name string, vectorDim int) (Collection, error) {
	if name == "" {
		return Collection{}, fmt.Errorf("collection name is required")
	}
	if len(name) > MaxCollectionNameLen {
		return Collection{}, fmt.Errorf("collection name too long (max %d)", MaxCollectionNameLen)
	}
	if !isValidName(name) {
		return Collection{}, fmt.Errorf("collection name %q contains invalid characters", name)
	}
	// The metadata namespace would collide with this collection's key
	// prefix, letting a corpus wipe take every collection's metadata.
	if name == "collections" {
		return Collection{}, fmt.Errorf("collection name %q is reserved", name)
	}
	if vectorDim <= 0 {
		return Collection{}, fmt.Errorf("vector dimensionality must be positive")
	}
	return Collection{name: name, vectorDim: vectorDim, createdAt: time.Now().Unix()}, nil
}

// ReconstructCollection creates a Collection without validation
// (storage hydration).
func ReconstructCollection(name string, vectorDim int, v vocab.Vocabulary, createdAt int64) Collection {
	return Collection{name: name, vectorDim: vectorDim, vocab: v, createdAt: createdAt}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// VectorDim returns the dense vector dimensionality.
func (c Collection) VectorDim() int { return c.vectorDim }

// Vocabulary returns the filter vocabulary snapshot.
func (c Collection) Vocabulary() vocab.Vocabulary { return c.vocab }

// CreatedAt returns the creation unix timestamp.
func (c Collection) CreatedAt() int64 { return c.createdAt }

// WithVocabulary returns a copy carrying a rebuilt vocabulary.
func (c Collection) WithVocabulary(v vocab.Vocabulary) Collection {
	c.vocab = v
	return c
}

// isValidName returns true if s matches [a-zA-Z0-9_-]+.
func isValidName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
