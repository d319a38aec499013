// Package setup writes the updater settings for a host and lists what is missing
// before the first update run.
//
// It persists the built-in defaults, checks the external tools and the unit file
// the updater relies on, and prints the next steps.
package setup
