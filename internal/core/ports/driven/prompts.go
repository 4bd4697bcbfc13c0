package driven

// PromptStore provides access to extraction instruction templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the instruction template for the given name.
	// Prompt names follow extraction field names: the template for the
	// "investors" field lives under the "investors" name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}
