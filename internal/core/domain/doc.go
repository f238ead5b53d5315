// Package domain defines the core entities for gitbook-qa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: Text extracted from one documentation page
//   - Chunk: A bounded slice of a document, the unit of retrieval
//   - StoredRecord: A chunk as persisted in the vector store
//   - Conversation: An ordered list of chat turns
//   - Answer: A chat model reply with its cited sources
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
