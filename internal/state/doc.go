// Package state defines the provisioning-state record and its JSON file
// persistence. The record replaces the implicit state machine of on-disk
// flag files: each workflow phase reads its precondition from the record and
// marks its own completion, which is what makes repeated runs safe.
package state
