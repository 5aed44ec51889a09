package constants

// Default laboratory roster
const (
	WorkerPhysicistMaster   = "Physicist Master"
	WorkerTeslaPrinciples   = "Tesla Principles"
	WorkerCuriousQuestioner = "Curious Questioner"
	WorkerWebCrawler        = "Web Crawler"

	// GeneralistPrefix generalists are named GeneralistPrefix + sequence number, starting at 1
	GeneralistPrefix = "Generalist-A"
	// MaxGeneralistsPerQuery upper bound of generalists assigned to one query
	MaxGeneralistsPerQuery = 3
	// DefaultGeneralistCount generalists installed by the default roster
	DefaultGeneralistCount = 5
)

// Specializations of the default specialists
const (
	SpecializationTheoreticalPhysics   = "Theoretical Physics"
	SpecializationElectromagnetic      = "Electromagnetic Theory"
	SpecializationHypothesisGeneration = "Hypothesis Generation"
	SpecializationDataCollection       = "Data Collection"
)
