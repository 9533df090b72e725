// Package mcp exposes the optimization engine as MCP tools.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the engine directly. Tools:
//
//	chunk_analyze     score one chunk and return suggestions
//	document_analyze  score every chunk of a document
//	batch_analyze     score an unrelated set of chunks
//	chunk_compare     lexical similarity of two texts
//	profile_list      list the domain profiles
package mcp
