// Package persistence implements the binary snapshot container: a little-endian
// file header, an optionally compressed payload, and a CRC32 footer covering
// both. The format is portable; all multi-byte values are written explicitly
// rather than through memory casts.
package persistence
