// Package opencover extracts per-class sequence coverage from OpenCover and
// Cobertura style XML reports.
//
// The extraction is a small state machine driven by three events (element
// open, element close, text). State holds the machine explicitly so it can be
// exercised without a decoder; Parser feeds it from an encoding/xml token
// stream.
package opencover

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/ludo-technologies/covscan/domain"
)

// Element and attribute names recognised by the state machine
const (
	ElementClass    = "class"
	ElementSummary  = "summary"
	ElementFullName = "FullName"

	AttrSequenceCoverage = "sequenceCoverage"
)

// Phase is the position of the state machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInClass
	PhaseHasSummary
	PhaseInFullName
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseInClass:
		return "InClass"
	case PhaseHasSummary:
		return "HasSummary"
	case PhaseInFullName:
		return "InFullName"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// CoverageFormatError reports a summary element whose sequenceCoverage
// attribute is missing or not a number
type CoverageFormatError struct {
	Value   string
	Missing bool
	Line    int
	Err     error
}

// Error implements the error interface
func (e *CoverageFormatError) Error() string {
	where := ""
	if e.Line > 0 {
		where = fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Missing {
		return fmt.Sprintf("summary element without %s attribute%s", AttrSequenceCoverage, where)
	}
	return fmt.Sprintf("invalid %s value %q%s", AttrSequenceCoverage, e.Value, where)
}

// Unwrap returns the numeric conversion error, if any
func (e *CoverageFormatError) Unwrap() error {
	return e.Err
}

// State is the live record of one parse.
// Exactly one class is tracked at a time; nested class elements are not
// supported and a new class element always discards the previous one.
type State struct {
	Phase Phase

	// Coverage is the pending value, meaningful only when HasCoverage is set
	Coverage    float64
	HasCoverage bool

	// ClassName is the last class name emitted
	ClassName string
}

// NewState returns an idle state
func NewState() *State {
	return &State{Phase: PhaseIdle}
}

// Reset returns the state to Idle and drops the pending coverage
func (s *State) Reset() {
	s.Phase = PhaseIdle
	s.Coverage = 0
	s.HasCoverage = false
}

// StartElement handles an element open event. A malformed coverage value
// yields a *CoverageFormatError; the class is then left without coverage and
// the machine stays usable.
func (s *State) StartElement(name string, attrs []xml.Attr) error {
	switch {
	case strings.EqualFold(name, ElementClass):
		s.Phase = PhaseInClass
		s.Coverage = 0
		s.HasCoverage = false

	case strings.EqualFold(name, ElementSummary):
		if s.Phase != PhaseInClass && s.Phase != PhaseHasSummary {
			return nil
		}
		coverage, err := parseCoverage(attrs)
		if err != nil {
			s.Phase = PhaseInClass
			s.Coverage = 0
			s.HasCoverage = false
			return err
		}
		s.Phase = PhaseHasSummary
		s.Coverage = coverage
		s.HasCoverage = true

	case strings.EqualFold(name, ElementFullName):
		if s.Phase == PhaseHasSummary {
			s.Phase = PhaseInFullName
		}
	}
	return nil
}

// EndElement handles an element close event
func (s *State) EndElement(name string) {
	if strings.EqualFold(name, ElementFullName) {
		s.Reset()
	}
}

// Text handles a text event. Only the first chunk delivered inside FullName
// produces a record; later chunks of the same element are ignored.
func (s *State) Text(text string) (domain.ClassCoverageRecord, bool) {
	if s.Phase != PhaseInFullName || !s.HasCoverage {
		return domain.ClassCoverageRecord{}, false
	}

	record := domain.ClassCoverageRecord{
		ClassName:       text,
		CoveragePercent: s.Coverage,
	}
	s.ClassName = text
	s.Coverage = 0
	s.HasCoverage = false
	return record, true
}

func parseCoverage(attrs []xml.Attr) (float64, error) {
	for _, attr := range attrs {
		if attr.Name.Local != AttrSequenceCoverage {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
		if err != nil {
			return 0, &CoverageFormatError{Value: attr.Value, Err: err}
		}
		return value, nil
	}
	return 0, &CoverageFormatError{Missing: true}
}
