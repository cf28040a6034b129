package service

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/covscan/domain"
	"github.com/ludo-technologies/covscan/internal/constants"
)

// SARIFLog is a SARIF 2.1.0 log with a single run
type SARIFLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SARIFRun `json:"runs"`
}

type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

type SARIFDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []SARIFRule `json:"rules,omitempty"`
}

type SARIFRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription SARIFMessage `json:"shortDescription"`
}

type SARIFResult struct {
	RuleID    string          `json:"ruleId"`
	Message   SARIFMessage    `json:"message"`
	Level     string          `json:"level"` // error, warning, note
	Locations []SARIFLocation `json:"locations"`
}

type SARIFMessage struct {
	Text string `json:"text"`
}

type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Region           SARIFRegion           `json:"region"`
}

type SARIFArtifactLocation struct {
	URI string `json:"uri"`
}

type SARIFRegion struct {
	StartLine int `json:"startLine"`
}

// sarifLevel is the level of every coverage result
const sarifLevel = "warning"

// BuildSARIF converts a coverage response into a SARIF log
func (f *OutputFormatterImpl) BuildSARIF(response *domain.CoverageResponse) SARIFLog {
	results := make([]SARIFResult, 0, len(response.Violations))
	for _, v := range response.Violations {
		uri := toURI(f.displayPath(v.File))
		if strings.TrimSpace(uri) == "" {
			uri = "UNKNOWN"
		}
		start := v.Line
		if start <= 0 {
			start = 1
		}

		results = append(results, SARIFResult{
			RuleID:  v.Rule,
			Level:   sarifLevel,
			Message: SARIFMessage{Text: strings.TrimSpace(v.Message)},
			Locations: []SARIFLocation{
				{
					PhysicalLocation: SARIFPhysicalLocation{
						ArtifactLocation: SARIFArtifactLocation{URI: uri},
						Region:           SARIFRegion{StartLine: start},
					},
				},
			},
		})
	}

	return SARIFLog{
		Version: constants.SARIFVersion,
		Schema:  constants.SARIFSchema,
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:    constants.ToolName,
						Version: response.Version,
						Rules: []SARIFRule{
							{
								ID:               domain.RulePoorCoverage,
								Name:             "PoorCoverage",
								ShortDescription: SARIFMessage{Text: "Class sequence coverage is below the configured threshold"},
							},
						},
					},
				},
				Results: results,
			},
		},
	}
}

func (f *OutputFormatterImpl) writeSARIF(response *domain.CoverageResponse, writer io.Writer) error {
	return WriteJSON(writer, f.BuildSARIF(response))
}

func toURI(p string) string {
	p = strings.TrimSpace(p)
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}
