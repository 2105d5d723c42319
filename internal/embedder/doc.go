// Package embedder turns query text into dense vectors.
//
// Three providers implement the Provider interface:
//   - vertex: Vertex AI text embeddings (gemini-embedding-001, 3072 dimensions)
//     through the aiplatform predict API, authenticated with Application
//     Default Credentials
//   - openai: any OpenAI-compatible /embeddings endpoint
//   - local: word hashing with no network, for development databases and tests
//
// # Capability
//
// Semantic search is optional. New returns a Capability rather than a bare
// Provider so that components can tell "not configured" from "configured":
//
//	capability, err := embedder.New(ctx, embedder.Config{
//	    Project:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
//	    Location: os.Getenv("GOOGLE_CLOUD_LOCATION"),
//	}, logger)
//	if err != nil {
//	    log.Fatal(err) // unknown provider name
//	}
//	defer capability.Close()
//
//	if p, ok := capability.Provider(); ok {
//	    vec, err := p.Embed(ctx, "student union elections", embedder.TaskRetrievalQuery)
//	}
//
// With nothing configured the capability is disabled and callers fail fast
// without any network traffic.
//
// # Retries and Rate Limiting
//
// Providers make one attempt by default. Config.MaxAttempts enables
// exponential backoff for 429 and 5xx responses; other client errors are
// returned immediately. Config.RequestsPerSecond wraps the provider in a
// token bucket (golang.org/x/time/rate) that waits for a token or for the
// caller's context to end.
//
// Embedding results are not cached here. Query embeddings are cached in the
// database by package embedcache.
package embedder
