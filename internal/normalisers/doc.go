// Package normalisers turns fetched pages into plain-text source documents.
// Each normaliser knows how to extract readable content from a specific
// page format; the html normaliser handles documentation pages.
package normalisers
