package classifier

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Analysis
		priority Priority
	}{
		{
			name: "theoretical quantum question",
			text: "Explain quantum entanglement",
			expected: Analysis{
				Type:             TypeTheoretical,
				Complexity:       ComplexitySimple,
				Domains:          []string{DomainQuantum},
				EstimatedMinutes: 6,
				RequiredWorkers:  []string{"Physicist Master", "Generalist-A1"},
			},
			priority: PriorityMedium,
		},
		{
			name: "computational without specialists",
			text: "Calculate 2+2",
			expected: Analysis{
				Type:             TypeComputational,
				Complexity:       ComplexitySimple,
				Domains:          []string{DomainGeneral},
				EstimatedMinutes: 2,
				RequiredWorkers:  []string{},
			},
			priority: PriorityMedium,
		},
		{
			name: "literature search",
			text: "Search the literature for recent papers on gravity waves and spacetime curvature in detail",
			expected: Analysis{
				Type:             TypeResearch,
				Complexity:       ComplexityMedium,
				Domains:          []string{DomainGravity},
				EstimatedMinutes: 9,
				RequiredWorkers:  []string{"Web Crawler", "Generalist-A1"},
			},
			priority: PriorityLow,
		},
		{
			name: "novel multi-domain experiment",
			text: "Design a novel experiment to measure electromagnetic field energy in superconductor materials near particle accelerators",
			expected: Analysis{
				Type:             TypeExperimental,
				Complexity:       ComplexityResearchLevel,
				Domains:          []string{DomainElectromagnetic, DomainParticle, DomainEnergy, DomainMaterials},
				EstimatedMinutes: 40,
				RequiredWorkers: []string{
					"Physicist Master", "Tesla Principles", "Curious Questioner",
					"Generalist-A1", "Generalist-A2",
				},
			},
			priority: PriorityUrgent,
		},
		{
			name: "long text is complex",
			text: strings.Repeat("a", 201),
			expected: Analysis{
				Type:             TypeResearch,
				Complexity:       ComplexityComplex,
				Domains:          []string{DomainGeneral},
				EstimatedMinutes: 19,
				RequiredWorkers:  []string{"Web Crawler", "Generalist-A1"},
			},
			priority: PriorityHigh,
		},
		{
			name: "intensity keyword overrides short length",
			text: "A comprehensive look at gravity",
			expected: Analysis{
				Type:             TypeResearch,
				Complexity:       ComplexityComplex,
				Domains:          []string{DomainGravity},
				EstimatedMinutes: 19,
				RequiredWorkers:  []string{"Web Crawler", "Generalist-A1"},
			},
			priority: PriorityHigh,
		},
		{
			name: "empty text defaults to research",
			text: "",
			expected: Analysis{
				Type:             TypeResearch,
				Complexity:       ComplexitySimple,
				Domains:          []string{DomainGeneral},
				EstimatedMinutes: 6,
				RequiredWorkers:  []string{"Web Crawler", "Generalist-A1"},
			},
			priority: PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.priority, PriorityOf(got))
		})
	}
}

func TestClassify_TypePriorityOrder(t *testing.T) {
	// computational keywords win over theoretical ones
	assert.Equal(t, TypeComputational, Classify("Explain how to compute the theory").Type)
	// theoretical wins over experimental
	assert.Equal(t, TypeTheoretical, Classify("Explain how to measure it").Type)
	// experimental wins over research
	assert.Equal(t, TypeExperimental, Classify("Find a way to measure it").Type)
	// classification is case insensitive
	assert.Equal(t, TypeComputational, Classify("SOLVE THIS").Type)
}

func TestGeneralistCount(t *testing.T) {
	assert.Equal(t, 0, GeneralistCount(0))
	assert.Equal(t, 1, GeneralistCount(1))
	assert.Equal(t, 1, GeneralistCount(2))
	assert.Equal(t, 2, GeneralistCount(3))
	assert.Equal(t, 2, GeneralistCount(4))
	assert.Equal(t, 3, GeneralistCount(7))
}

func TestAnalysis_HasDomain(t *testing.T) {
	a := Classify("quantum gravity")
	assert.True(t, a.HasDomain(DomainQuantum))
	assert.True(t, a.HasDomain(DomainGravity))
	assert.False(t, a.HasDomain(DomainMaterials))
}

func TestProperty_ClassifyIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	keywords := gen.OneConstOf(
		"quantum", "explain", "calculate", "measure", "search", "novel", "field",
		"particle", "energy", "papers", "detailed", "gravity", "material", "the", "of",
	)
	text := gen.SliceOf(gen.OneGenOf(keywords, gen.AlphaString())).Map(func(words []string) string {
		return strings.Join(words, " ")
	})

	properties.Property("same text yields identical analysis", prop.ForAll(
		func(s string) bool {
			return reflect.DeepEqual(Classify(s), Classify(s))
		},
		text,
	))

	properties.Property("estimated minutes follow base + 2 per worker", prop.ForAll(
		func(s string) bool {
			a := Classify(s)
			return a.EstimatedMinutes == baseMinutes[a.Complexity]+2*len(a.RequiredWorkers)
		},
		text,
	))

	properties.Property("generalists are numbered from 1 and capped at 3", prop.ForAll(
		func(s string) bool {
			a := Classify(s)
			generalists := 0
			for _, w := range a.RequiredWorkers {
				if strings.HasPrefix(w, "Generalist-A") {
					generalists++
					if w != GeneralistName(generalists) {
						return false
					}
				}
			}
			specialists := len(a.RequiredWorkers) - generalists
			return generalists == GeneralistCount(specialists) && generalists <= 3
		},
		text,
	))

	properties.Property("domains are never empty", prop.ForAll(
		func(s string) bool {
			return len(Classify(s).Domains) > 0
		},
		text,
	))

	properties.TestingRun(t)
}
