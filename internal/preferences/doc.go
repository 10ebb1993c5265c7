// Package preferences reads per-user scheduling defaults from a memory file.
//
// The store is read-only. It supplies the default meeting duration and
// timezone of a user when a request does not specify them.
package preferences
