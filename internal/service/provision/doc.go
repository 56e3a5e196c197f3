// Package provision implements the idempotent provisioning workflow for the
// review stand: precondition checks, runtime dependency installation,
// checksum-gated dataset acquisition with the external enrichment pipeline,
// container startup with bounded readiness polling, one-time database import
// and app launch. Progress is tracked in an explicit state record so a
// repeated run resumes exactly where the previous one stopped.
package provision
