// Package backend provides the Nexus Social API server and retention worker.

// The code is organized into subpackages:

// - cmd/server: API server entry point
// - cmd/retention: standalone retention scheduler and one-shot sweep CLI
// - cmd/migrate: database migration runner
// - cmd/seed: development data seeder
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/stories: Story lifecycle, feed aggregation and view tracking
// - internal/gdpr: Deletion requests, account erasure, consent and export
// - internal/retention: Scheduled sweeps (expiry, erasure, stale data)
// - internal/social: Follow graph queries
// - internal/auth: Token validation
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (request ids, logging, rate limiting)
// - internal/metrics: Prometheus instrumentation

// See the individual package documentation for detailed API reference.
package backend
