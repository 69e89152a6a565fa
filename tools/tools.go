//go:build tools
// +build tools

// Package tools documents development tool dependencies. These are
// installed globally with `go install` and deliberately kept out of
// go.mod because nothing at runtime needs them.
package tools

// Development tools (install via `go install`):
//
// Air - live reload during local development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Version: v1.63.0 (pinned 2025-01-01)
//   Docs: https://github.com/air-verse/air
