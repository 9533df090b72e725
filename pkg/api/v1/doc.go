// Package v1 defines the version 1 wire format of the chunkopt HTTP API.
//
// The types here are shared by the server, the Go client and the MCP tools.
// Scores are floats in [0,1]; priorities are "HIGH", "MEDIUM" or "LOW".
package v1
