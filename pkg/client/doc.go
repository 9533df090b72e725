// Package client is a Go client for the chunkopt REST API.
//
//	c, err := client.New("http://localhost:8080", client.WithAPIKey(key))
//	if err != nil {
//	    return err
//	}
//	res, err := c.AnalyzeChunk(ctx, &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: text})
//	switch {
//	case errors.Is(err, client.ErrRateLimit):
//	    // back off
//	case err != nil:
//	    return err
//	}
//
// Chunk responses are cached in memory for an hour by default; see WithCache
// and WithoutCache.
package client
