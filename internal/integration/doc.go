// Package integration runs whole update runs against local HTTP servers and fake host tools.
package integration
