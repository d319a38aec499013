// Package localversion reports the version of the installed ollama binary.
package localversion
