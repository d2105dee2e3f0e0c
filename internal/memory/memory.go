// Package memory provides the house-facts capability: store a free-text
// fact, search facts by query. The core never parses fact content.
//
// Two interchangeable backends exist: a remote semantic store and a
// local substring-search file, selected by configuration at startup.
package memory

import "context"

// Store is the capability interface shared by both backends.
type Store interface {
	// StoreFact persists one unstructured text fact.
	StoreFact(ctx context.Context, text string) error
	// SearchFacts returns facts relevant to the query, most relevant first.
	SearchFacts(ctx context.Context, query string) ([]string, error)
}
