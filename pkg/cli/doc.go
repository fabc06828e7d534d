// Package cli provides shared helpers for the saturn command-line tool:
// output formatting, progress reporting, signal handling, and typed errors.
package cli
