// Package config loads, validates and persists the YAML settings shared by
// the stand binaries: dataset artifact paths and digests, external pipeline
// program locations, container stack parameters, readiness poll bounds and
// the app bind address. Settings files are written with owner-only
// permissions because they sit next to the secrets they reference.
package config
