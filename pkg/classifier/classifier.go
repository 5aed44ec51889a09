// Package classifier derives a query analysis from free text using fixed keyword tables.
// Classification is a pure function of its input.
package classifier

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"labswarm/pkg/constants"
)

// QueryType broad nature of a query
type QueryType string

const (
	TypeTheoretical   QueryType = "theoretical"
	TypeExperimental  QueryType = "experimental"
	TypeComputational QueryType = "computational"
	TypeResearch      QueryType = "research"
	TypeMixed         QueryType = "mixed"
)

// Complexity query complexity level
type Complexity string

const (
	ComplexitySimple        Complexity = "simple"
	ComplexityMedium        Complexity = "medium"
	ComplexityComplex       Complexity = "complex"
	ComplexityResearchLevel Complexity = "research_level"
)

// Priority scheduling priority derived from an analysis
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Domain labels
const (
	DomainQuantum         = "quantum_physics"
	DomainElectromagnetic = "electromagnetic"
	DomainParticle        = "particle_physics"
	DomainGravity         = "gravity"
	DomainEnergy          = "energy_systems"
	DomainMaterials       = "materials"
	DomainGeneral         = "general_physics"
)

const (
	simpleMaxLength  = 50
	complexMinLength = 200
	minutesPerWorker = 2
)

// Analysis result of classifying a query
type Analysis struct {
	Type             QueryType  `json:"type"`
	Complexity       Complexity `json:"complexity"`
	Domains          []string   `json:"domains"`
	EstimatedMinutes int        `json:"estimatedTime"`
	RequiredWorkers  []string   `json:"requiredAgents"`
}

// HasDomain reports whether domain is part of the analysis
func (a Analysis) HasDomain(domain string) bool {
	for _, d := range a.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

type typeRule struct {
	queryType QueryType
	keywords  []string
}

// Scanned in order; the first rule with a matching keyword wins.
var typeRules = []typeRule{
	{TypeComputational, []string{"calculate", "compute", "solve"}},
	{TypeTheoretical, []string{"theory", "explain", "principle"}},
	{TypeExperimental, []string{"experiment", "test", "measure"}},
	{TypeResearch, []string{"find", "search", "research"}},
}

type domainRule struct {
	domain   string
	keywords []string
}

var domainRules = []domainRule{
	{DomainQuantum, []string{"quantum"}},
	{DomainElectromagnetic, []string{"electromagnetic", "tesla", "field"}},
	{DomainParticle, []string{"particle", "higgs", "accelerator"}},
	{DomainGravity, []string{"gravity", "relativity", "spacetime"}},
	{DomainEnergy, []string{"energy", "thermodynamics"}},
	{DomainMaterials, []string{"material", "superconductor"}},
}

var (
	intensityKeywords  = []string{"comprehensive", "detailed"}
	noveltyKeywords    = []string{"novel", "breakthrough", "cutting-edge"}
	literatureKeywords = []string{"literature", "papers"}
)

var baseMinutes = map[Complexity]int{
	ComplexitySimple:        2,
	ComplexityMedium:        5,
	ComplexityComplex:       15,
	ComplexityResearchLevel: 30,
}

// Classify analyzes text
func Classify(text string) Analysis {
	lower := strings.ToLower(text)

	queryType := classifyType(lower)
	complexity := classifyComplexity(lower)
	domains := classifyDomains(lower)
	workers := requiredWorkers(lower, queryType, complexity, domains)

	return Analysis{
		Type:             queryType,
		Complexity:       complexity,
		Domains:          domains,
		EstimatedMinutes: baseMinutes[complexity] + minutesPerWorker*len(workers),
		RequiredWorkers:  workers,
	}
}

// PriorityOf maps an analysis to a scheduling priority
func PriorityOf(a Analysis) Priority {
	switch {
	case a.Complexity == ComplexityResearchLevel:
		return PriorityUrgent
	case a.Complexity == ComplexityComplex:
		return PriorityHigh
	case a.Type == TypeComputational || a.Type == TypeTheoretical:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func classifyType(lower string) QueryType {
	for _, rule := range typeRules {
		if containsAny(lower, rule.keywords) {
			return rule.queryType
		}
	}
	return TypeResearch
}

func classifyComplexity(lower string) Complexity {
	length := utf8.RuneCountInString(lower)

	complexity := ComplexityMedium
	if length < simpleMaxLength {
		complexity = ComplexitySimple
	}
	// Intensity keywords escalate even short texts
	if length > complexMinLength || containsAny(lower, intensityKeywords) {
		complexity = ComplexityComplex
	}
	if containsAny(lower, noveltyKeywords) {
		complexity = ComplexityResearchLevel
	}
	return complexity
}

func classifyDomains(lower string) []string {
	domains := make([]string, 0, 2)
	for _, rule := range domainRules {
		if containsAny(lower, rule.keywords) {
			domains = append(domains, rule.domain)
		}
	}
	if len(domains) == 0 {
		domains = append(domains, DomainGeneral)
	}
	return domains
}

func requiredWorkers(lower string, queryType QueryType, complexity Complexity, domains []string) []string {
	has := func(domain string) bool {
		for _, d := range domains {
			if d == domain {
				return true
			}
		}
		return false
	}

	workers := make([]string, 0, 7)
	if has(DomainQuantum) || has(DomainParticle) || queryType == TypeTheoretical {
		workers = append(workers, constants.WorkerPhysicistMaster)
	}
	if has(DomainElectromagnetic) || has(DomainEnergy) {
		workers = append(workers, constants.WorkerTeslaPrinciples)
	}
	if queryType == TypeResearch || containsAny(lower, literatureKeywords) {
		workers = append(workers, constants.WorkerWebCrawler)
	}
	if queryType == TypeExperimental || complexity == ComplexityResearchLevel {
		workers = append(workers, constants.WorkerCuriousQuestioner)
	}

	generalists := GeneralistCount(len(workers))
	for i := 1; i <= generalists; i++ {
		workers = append(workers, GeneralistName(i))
	}
	return workers
}

// GeneralistCount number of supporting generalists for n specialists
func GeneralistCount(specialists int) int {
	n := (specialists + 1) / 2
	if n > constants.MaxGeneralistsPerQuery {
		n = constants.MaxGeneralistsPerQuery
	}
	return n
}

// GeneralistName name of the i-th generalist, starting at 1
func GeneralistName(i int) string {
	return fmt.Sprintf("%s%d", constants.GeneralistPrefix, i)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
