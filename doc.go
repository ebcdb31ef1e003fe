// Package synchrony provides the shared capability types, process-wide
// configuration, and error taxonomy used across the externalized file
// engine (efile, queue) and the synchronized-iteration engine
// (track). Records are opaque to every package in this module: callers
// supply ordering and equality as plain functions and serialization as
// separate Serializer/Deserializer values, never as an interface the
// record type must implement.
package synchrony
