// Package server implements the HTTP and WebSocket side of the chat room.
//
// The Hub owns the shared room state (message history and presence) and fans
// events out to connected clients. Each Client runs a read and a write pump
// over its gorilla WebSocket. Handlers, routes, and the Server type expose the
// hub over HTTP with chi.
package server
