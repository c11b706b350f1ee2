// Package file provides the file-based ConfigStore.
// Configuration is a TOML document in the xkit config directory; nested
// tables are exposed as dot-notation keys ("session.token").
package file
