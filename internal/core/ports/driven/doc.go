// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Ingestion Interfaces
//
//   - SitemapResolver: Turns a sitemap URL into page URLs
//   - PageFetcher: Fetches one page body
//   - RateLimiter: Paces page requests
//   - ContentExtractor: Extracts primary text from a page
//   - PostProcessorPipeline: Chunks extracted documents
//
// # Storage and Provider Interfaces
//
//   - VectorStore: Persists chunks with embeddings and answers similarity queries
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Chat completion
//   - HistoryStore: Saved conversations
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
