// Package config loads the engine configuration.
//
// Configuration comes from three layers, lowest first: built-in defaults,
// a TOML file, and CARBON_* environment variables. Environment names map
// to dotted paths by section: CARBON_HISTORY_MAX_ENTRIES sets
// history.max_entries.
//
//	[history]
//	max_entries = 500
//
//	[tree]
//	compact_threshold = 64
//
//	[transaction]
//	abort_on_failure = false
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[schema]
//	path = "schema.toml"
//
// Watch reloads the file when it changes on disk.
package config
