package service

import (
	"labswarm/internal/model"
	"labswarm/pkg/classifier"
	"labswarm/pkg/constants"
)

// DefaultRoster the laboratory's initial workers: four specialists and five generalists
func DefaultRoster() []*model.Worker {
	roster := []*model.Worker{
		{
			Name:             constants.WorkerPhysicistMaster,
			Kind:             model.WorkerKindSpecialist,
			Specialization:   model.StringPtr(constants.SpecializationTheoreticalPhysics),
			Status:           model.WorkerStatusActive,
			Load:             23,
			CurrentTaskLabel: model.StringPtr("Quantum Analysis"),
			Progress:         67,
			Capabilities:     []string{"quantum_mechanics", "particle_physics", "theoretical_analysis"},
		},
		{
			Name:             constants.WorkerTeslaPrinciples,
			Kind:             model.WorkerKindSpecialist,
			Specialization:   model.StringPtr(constants.SpecializationElectromagnetic),
			Status:           model.WorkerStatusActive,
			Load:             45,
			CurrentTaskLabel: model.StringPtr("Field Calculations"),
			Progress:         89,
			Capabilities:     []string{"electromagnetic_theory", "energy_systems", "field_analysis"},
		},
		{
			Name:             constants.WorkerCuriousQuestioner,
			Kind:             model.WorkerKindSpecialist,
			Specialization:   model.StringPtr(constants.SpecializationHypothesisGeneration),
			Status:           model.WorkerStatusActive,
			Load:             12,
			CurrentTaskLabel: model.StringPtr("Question Generation"),
			Progress:         34,
			Capabilities:     []string{"hypothesis_generation", "critical_thinking", "research_methodology"},
		},
		{
			Name:             constants.WorkerWebCrawler,
			Kind:             model.WorkerKindSpecialist,
			Specialization:   model.StringPtr(constants.SpecializationDataCollection),
			Status:           model.WorkerStatusActive,
			Load:             67,
			CurrentTaskLabel: model.StringPtr("Paper Mining"),
			Progress:         78,
			Capabilities:     []string{"web_scraping", "data_mining", "paper_analysis"},
		},
	}

	for i := 1; i <= constants.DefaultGeneralistCount; i++ {
		roster = append(roster, &model.Worker{
			Name:         classifier.GeneralistName(i),
			Kind:         model.WorkerKindGeneralist,
			Status:       model.WorkerStatusStandby,
			Load:         8,
			Capabilities: []string{"general_analysis", "data_processing", "basic_research"},
		})
	}
	return roster
}

// InitialMetrics first system metrics snapshot of a fresh laboratory
func InitialMetrics() *model.SystemMetrics {
	return &model.SystemMetrics{
		CPUUsage:     34,
		MemoryUsage:  67,
		NetworkIO:    12,
		StorageUsed:  2300,
		StorageTotal: 5000,
	}
}
