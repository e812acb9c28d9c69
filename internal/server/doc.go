// Package server exposes the test dispatcher over HTTP for browser clients.
//
// Routes:
//
//	POST    /api/trigger-test  dispatch a manifest test
//	OPTIONS /*                 CORS headers, always 200
//	GET     /healthz           liveness
package server
