// Package nodes provides ready-made nodes for anchor chains.
//
// The package is organized into categories:
//   - text: Logger, Prompt, TextPrompt, Upper, Lower, Append
//   - data: JSONPath, Validate, Decode
//   - script: Lua
//
// Every node reports failures with an *anchor.Error of the matching kind.
package nodes
