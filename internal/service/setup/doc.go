// Package setup implements the stand-setup command: one-time interactive
// materialization of the application secrets file.
package setup
