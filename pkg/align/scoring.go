package align

import (
	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
)

// DefaultMatch is the score awarded when a residue matches a node symbol.
// The boundary operations expose only the three penalty magnitudes, so the
// match reward is fixed here.
const DefaultMatch = 2

// Scoring holds an affine gap scoring scheme. All fields are positive
// magnitudes: Match is added for a matched residue, Mismatch is subtracted
// for a substitution, GapOpen is subtracted once when a gap starts, and
// GapExtend is subtracted for every further gapped position.
type Scoring struct {
	Match     int `json:"match"`
	Mismatch  int `json:"mismatch"`
	GapOpen   int `json:"gap_open"`
	GapExtend int `json:"gap_extend"`
}

// NewScoring returns a scheme with the default match score and the given
// penalty magnitudes.
func NewScoring(mismatch, gapOpen, gapExtend int) Scoring {
	return Scoring{
		Match:     DefaultMatch,
		Mismatch:  mismatch,
		GapOpen:   gapOpen,
		GapExtend: gapExtend,
	}
}

// Validate checks the scheme for a usable configuration. Every magnitude
// must be at least 1, and extending a gap cannot cost more than opening
// one. Violations are reported as INVALID_SCORING errors and are never
// silently corrected.
func (s Scoring) Validate() error {
	if s.Match < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidScoring, "match score must be positive, got %d", s.Match)
	}
	if s.Mismatch < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidScoring, "mismatch penalty must be positive, got %d", s.Mismatch)
	}
	if s.GapOpen < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidScoring, "gap open penalty must be positive, got %d", s.GapOpen)
	}
	if s.GapExtend < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidScoring, "gap extend penalty must be positive, got %d", s.GapExtend)
	}
	if s.GapExtend > s.GapOpen {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidScoring,
			"gap extend penalty %d exceeds gap open penalty %d", s.GapExtend, s.GapOpen)
	}
	return nil
}

// substitution returns the signed score of placing residue a on a node
// holding symbol b.
func (s Scoring) substitution(a, b byte) int {
	if a == b {
		return s.Match
	}
	return -s.Mismatch
}
