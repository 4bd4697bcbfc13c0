// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - FieldTable: TOML-based extraction field routing definitions
//   - PromptStore: plain-text extraction prompt templates
package file
