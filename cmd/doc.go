// Package cmd implements the command-line interface for meetslot.
//
// This package provides the following commands:
//   - find: Rank common free slots for a set of participants on a date
//   - serve: Start the MCP server to provide scheduling tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
