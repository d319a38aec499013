// Package release contains the core domain types of an update run.
//
// It defines Release (one record of the upstream release list), Mode (which
// path the run takes) and the selection rule picking the newest published
// stable or pre-release record.
package release
