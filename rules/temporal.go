package rules

// TemporalModel gives date and timestamp columns no automatic match; they
// are left for a curator to bind with GenerateConcept.
type TemporalModel struct{}

// Match always returns no candidates.
func (TemporalModel) Match([]string) []Candidate {
	return nil
}

// Size is always zero.
func (TemporalModel) Size() int {
	return 0
}
