// Package handler implements HTTP request handlers for the pipenet API.
//
// # Handlers
//
// DesignHandler accepts design documents, runs them through the design
// service and serves the stored runs and their exports.
//
// Middleware provides panic recovery, request logging, CORS and
// Prometheus request metrics.
//
// # Routes
//
//	POST   /api/designs                       solve an uploaded design
//	GET    /api/designs                       list stored runs, newest first
//	GET    /api/designs/{id}                  get a run with its snapshot
//	DELETE /api/designs/{id}                  delete a run
//	GET    /api/designs/{id}/export/{format}  export a run (json, yaml, geojson)
//	GET    /api/formats                       list export formats
//	GET    /healthz                           liveness
//
// The format of an uploaded design follows its Content-Type:
// application/yaml for the YAML layout and application/geo+json (or
// application/json) for a GeoJSON FeatureCollection. The optimizer, seed
// and name query parameters override the configured defaults.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure. Designs that
// were stored but could not be solved answer 422 with the run_id of the
// stored run.
package handler
