// Package vectorstore groups the driven.VectorStore adapters.
//
//   - postgres: Postgres with the pgvector extension (Supabase compatible)
//   - qdrant: Qdrant over gRPC
//   - memory: in-process store for tests and offline use
package vectorstore
