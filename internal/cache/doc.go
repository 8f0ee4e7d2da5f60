// Package cache provides the ephemeral key-value store that holds in-flight
// interview sessions. Every value carries a time-to-live; the conditional
// writes (SetIfAbsent, SetIfPresent) are the only synchronization primitive
// the session engine relies on.
package cache
