// Package connectors holds the adapters that pull documentation from a
// remote site into the ingestion pipeline.
//
// The gitbook subpackage resolves sitemaps and fetches pages for published
// GitBook sites. The ingest service only depends on the driven ports, so
// another documentation host can be added as a sibling package.
package connectors
