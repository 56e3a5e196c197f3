// Package doctor implements the stand-doctor command: it runs the
// provisioning preflight checks without provisioning anything.
package doctor
