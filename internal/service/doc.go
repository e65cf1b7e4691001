// Package service implements the design workflow of pipenet.
//
// DesignService sits between the HTTP handlers, the CLI and the
// repository. A run loads nothing itself: it receives a decoded design,
// builds a fresh network, sizes it with the greedy or the genetic
// optimizer, summarizes it and stores the result.
//
// # Event System
//
// Runs publish events on an EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE): run_started, optimizer_progress,
// run_completed, run_failed and run_deleted.
//
// Every run owns its network, so independent runs may execute
// concurrently.
package service
