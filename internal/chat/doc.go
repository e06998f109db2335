// Package chat holds the shared room state and the wire vocabulary spoken
// between the hub and its clients.
//
// History keeps the bounded window of recent messages and Presence tracks
// which display names are online. Both are safe for concurrent use and are
// owned by whoever constructs them; nothing in this package is global.
package chat
