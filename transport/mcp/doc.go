// Package mcp exposes the admin API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool calls the REST API of a running
// server and formats the JSON answer as text for a language model.
//
// Tools:
//   - list_rooms
//   - get_room(code)
//   - hand_history(code)
//   - list_presets
//   - get_preset(name)
//
// The tools are read-only. Play happens over the WebSocket event channel.
//
// Serving:
//
//	client := mcp.NewClient("http://localhost:8080")
//	router.Mount("/mcp", client.HTTPHandler())        // JSON-RPC over POST
//	server.ServeStdio(client.GetMCPServer())          // stdio transport
package mcp
