// Package client is the terminal-side half of the chat room.
//
// A Session owns one user's view of the room: connection state, the local
// message window, the online list, and who is typing. It talks to the server
// through a Dialer and a HistoryFetcher so tests can drive it without a
// network. WebSocketDialer and HistoryClient are the real implementations.
package client
