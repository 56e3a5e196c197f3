// Package command wraps external tool invocation behind a Runner interface
// returning structured results (exit status, captured output) instead of the
// shell's implicit last-exit-code convention. Every external dependency of
// the stand (docker, ufw, pg_isready, the data pipeline programs) is invoked
// through it, which also makes the orchestration testable with fakes.
package command
