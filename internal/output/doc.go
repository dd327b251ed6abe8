// Package output provides styled terminal output for entraguard.
//
// It wraps charmbracelet/log for structured logging and
// charmbracelet/lipgloss for styling. User-facing output goes through this
// package rather than fmt.Println so the --json and NO_COLOR modes behave
// consistently everywhere.
package output
