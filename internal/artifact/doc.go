// Package artifact implements checksum-gated acquisition of dataset files.
// Presence of a file with the expected SHA-256 digest is the sole completion
// signal: a missing file and a corrupt file are treated identically and
// trigger a single fetch, whose result is verified before it reaches the
// target path. A digest mismatch after fetching is fatal and never retried.
package artifact
