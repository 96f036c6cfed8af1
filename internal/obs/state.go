package obs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// DomainState is the domain prefix for content-addressed State identity.
// The version suffix enables future hash algorithm migration.
const DomainState = "wander/state/v1"

// State is the assembled view of every registered system at one reachable
// point. States are immutable once constructed; the Graph owns them by ID.
type State struct {
	// ID is the content hash over all observations' Data, keyed by system
	// name. Two States with byte-identical observation content share an ID.
	ID string

	// Observations maps system name to that system's snapshot.
	Observations map[string]Observation

	// CheckpointID names the checkpoint bundle taken for this State, used
	// by the agent to return here without re-executing the prefix. It is
	// excluded from the content hash.
	CheckpointID string
}

// NewState assembles a State from per-system observations and computes its
// content-addressed ID. Returns an error if any observation data cannot be
// canonically marshaled.
func NewState(observations map[string]Observation) (*State, error) {
	id, err := StateID(observations)
	if err != nil {
		return nil, err
	}
	return &State{ID: id, Observations: observations}, nil
}

// StateID computes the content-addressed ID for a set of observations.
// The ID is stable across runs and processes given the same observed data.
//
// Only System and Data participate in the hash. ObservedAt and checkpoint
// handles are execution artifacts, not content: hashing them would make
// every revisit of identical content look like a new State and unbound the
// graph.
func StateID(observations map[string]Observation) (string, error) {
	systems := make([]string, 0, len(observations))
	for name := range observations {
		systems = append(systems, name)
	}
	sort.Strings(systems)

	obj := make(map[string]any, len(systems))
	for _, name := range systems {
		obj[name] = observations[name].Data
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StateID: failed to marshal observations: %w", err)
	}
	return Hash(DomainState, canonical), nil
}

// Get returns the observation for a system, or false if that system was not
// part of this State.
func (s *State) Get(system string) (Observation, bool) {
	o, ok := s.Observations[system]
	return o, ok
}

// Systems returns the sorted names of all systems observed in this State.
func (s *State) Systems() []string {
	names := make([]string, 0, len(s.Observations))
	for name := range s.Observations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hash computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MustStateID is like StateID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateID(observations map[string]Observation) string {
	id, err := StateID(observations)
	if err != nil {
		panic(err)
	}
	return id
}
