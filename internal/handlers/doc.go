// Package handlers provides the HTTP intake API of the thumbnailer.
//
// It includes handlers for:
//   - Job submission (POST /enqueue)
//   - Queue health (GET /health)
//   - Liveness, readiness and version probes
//   - Optional bearer token protection of the intake
package handlers
