package config

const (
	defaultStorageProvider = "sqlite"

	defaultGenerationTarget = "http://localhost:11434"
	defaultGenerationModel  = "gemma3:latest"

	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultVectorProvider = "sqlite"

	defaultHistoryTurns = 10
	defaultJournalTopK  = 3
	defaultMemoryLimit  = 5
	defaultPromptBudget = 8000

	defaultAPIListen = ":8090"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "gemi.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Generation: GenerationConfig{
			Target: defaultGenerationTarget,
			Model:  defaultGenerationModel,
		},
		Embedding: EmbeddingConfig{
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Memory: MemoryConfig{
			Enabled: true,
		},
		Context: ContextConfig{
			HistoryTurns: defaultHistoryTurns,
			JournalTopK:  defaultJournalTopK,
			MemoryLimit:  defaultMemoryLimit,
			PromptBudget: defaultPromptBudget,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
