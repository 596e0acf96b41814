// Package file keeps user-editable configuration under the config directory
// (~/.qir-evidence by default).
//
// Adapters:
//   - ConfigStore: config.toml with flattened dot keys
//   - PromptStore: one editable template per draft section
package file
