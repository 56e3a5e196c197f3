package state

import "time"

// Actor identifies who last ran the provisioner, for the audit trail.
type Actor struct {
	// Hostname of the machine the provisioner ran on.
	Hostname string `json:"hostname"`
	// Username of the operator.
	Username string `json:"username"`
}

// State is the explicit provisioning-state record threaded through each
// workflow phase. Phase preconditions are checks on this record rather than
// ad hoc file tests; artifact digests remain the integrity backstop.
type State struct {
	// UpdatedAt is when the record was last persisted.
	UpdatedAt time.Time `json:"updated_at"`
	// LastActor identifies the operator of the last run.
	LastActor *Actor `json:"last_actor,omitempty"`
	// DependenciesReady records that the runtime environment is installed.
	DependenciesReady bool `json:"dependencies_ready"`
	// DatasetReady records that the enriched artifact passed its digest check.
	DatasetReady bool `json:"dataset_ready"`
	// ContainersStarted records that the container stack came up healthy.
	ContainersStarted bool `json:"containers_started"`
	// DataImported records that the database import completed.
	DataImported bool `json:"data_imported"`
	// AppLaunched records that the serving process was started.
	AppLaunched bool `json:"app_launched"`
}

// New returns an empty state record for a first run.
func New() *State {
	return &State{}
}

// Touch stamps the record with the current time and actor before persisting.
func (s *State) Touch(actor *Actor) {
	s.UpdatedAt = time.Now()

	if actor != nil {
		s.LastActor = actor
	}
}
