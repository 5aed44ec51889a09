package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"labswarm/internal/model"
	"labswarm/pkg/classifier"
	"labswarm/pkg/narrative"
)

// Synthesizer combines task results into a query's final response
type Synthesizer interface {
	Synthesize(query *model.Query, tasks []*model.Task) (string, error)
}

// ReportSynthesizer renders a markdown laboratory report
type ReportSynthesizer struct {
	rnd narrative.Random
	now func() time.Time
}

// NewReportSynthesizer creates a report synthesizer
func NewReportSynthesizer(rnd narrative.Random) *ReportSynthesizer {
	return &ReportSynthesizer{rnd: rnd, now: time.Now}
}

var recommendedNextSteps = []string{
	"Design targeted experiments to test the proposed mechanisms",
	"Conduct deeper literature review on related phenomena",
	"Develop computational models for quantitative predictions",
	"Collaborate with experimental groups for validation",
}

// Synthesize implements Synthesizer
func (s *ReportSynthesizer) Synthesize(query *model.Query, tasks []*model.Task) (string, error) {
	if query == nil {
		return "", errors.New("synthesize: nil query")
	}
	analysis := query.Metadata.Analysis

	var b strings.Builder
	b.WriteString("## Research Laboratory Analysis\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n\n", query.Content)
	fmt.Fprintf(&b, "**Analysis Type:** %s | **Complexity:** %s\n\n", analysis.Type, analysis.Complexity)

	b.WriteString("### Agent Swarm Findings:\n\n")
	findings := 0
	for _, t := range tasks {
		if t.Status != model.TaskStatusCompleted || t.Result == nil {
			continue
		}
		findings++
		fmt.Fprintf(&b, "%d. %s\n\n", findings, *t.Result)
	}
	if findings == 0 {
		b.WriteString("No worker contributed findings to this query.\n\n")
	}

	b.WriteString("### Synthesis:\n\n")
	fmt.Fprintf(&b, "Based on the coordinated analysis by %d specialized workers, the investigation reveals:\n\n", findings)

	mechanism := "classical physical"
	if analysis.HasDomain(classifier.DomainQuantum) {
		mechanism = "quantum mechanical"
	}
	fmt.Fprintf(&b, "- **Primary Mechanism:** The phenomenon appears to be governed by %s principles\n", mechanism)

	foundation := "require refinement to fully explain"
	if narrative.Chance(s.rnd, 0.5) {
		foundation = "adequately explain"
	}
	fmt.Fprintf(&b, "- **Theoretical Foundation:** Current models %s the observed behavior\n", foundation)

	validation := "Further experimental validation is recommended"
	if narrative.Chance(s.rnd, 0.3) {
		validation = "Existing experimental data supports the theoretical predictions"
	}
	fmt.Fprintf(&b, "- **Experimental Validation:** %s\n", validation)

	impact := "moderate"
	if narrative.Chance(s.rnd, 0.4) {
		impact = "significant"
	}
	fmt.Fprintf(&b, "- **Research Impact:** This analysis has %s implications for %s\n\n",
		impact, strings.Join(analysis.Domains, ", "))

	b.WriteString("### Recommended Next Steps:\n\n")
	for i, step := range recommendedNextSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	fmt.Fprintf(&b, "\n*Analysis completed by Physics Research Laboratory Multi-Agent System at %s*",
		s.now().UTC().Format(time.RFC1123))
	return b.String(), nil
}

// apologyResponse final response of a query whose synthesis failed
func apologyResponse(err error) string {
	return fmt.Sprintf("We are sorry, the laboratory could not synthesize a response for this query (%v). "+
		"Individual task results remain available.", err)
}

// cancelledResponse final response of a cancelled query
const cancelledResponse = "This query was cancelled before the laboratory completed its analysis."
