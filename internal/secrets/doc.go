// Package secrets materializes the application env file: the LLM provider
// key is solicited interactively with input masking, the database password
// is generated from crypto/rand, non-sensitive fields fall back to defaults.
// The file is created exactly once with owner-only permissions and is never
// overwritten by subsequent runs.
package secrets
