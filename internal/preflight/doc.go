// Package preflight verifies environment preconditions before provisioning:
// distribution and release version, python3 availability, a responsive
// Docker daemon, and a writable data directory. All checks run even when an
// early one fails so the report names every unmet requirement.
package preflight
