// Package app wires the application together: configuration, logging, the
// API client, the cache store, and the workflow run lifecycle.
package app
