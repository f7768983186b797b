// Package workflow defines the declaration model for an analysis run: named
// data sources, analysis steps with kind-specific configuration, and a
// fluent builder that wires them together. The model is format-agnostic;
// the hcl package loads the same model from declaration files.
package workflow
