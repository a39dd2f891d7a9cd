// Package controller contains HTTP middlewares and helper handlers used by the
// bills API server.
//
// Provided middlewares:
//   - WithCORS: Adds permissive CORS headers for the bill endpoints and handles OPTIONS preflight.
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//   - WithRecover: Turns a panicking handler into a 500 problem response.
//
// Provided helpers:
//   - PprofMux: Returns a ServeMux exposing net/http/pprof handlers.
package controller
