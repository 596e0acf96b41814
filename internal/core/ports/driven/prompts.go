package driven

// PromptStore provides access to section prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given section ID.
	// If no customised template exists, implementations return the default
	// they were seeded with, or an error when they have none.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}
