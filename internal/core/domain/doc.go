// Package domain defines the core entities of the xkit client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Config: The vendor domain plus the current session token
//   - Authorization: A server-owned credential-granting record
//   - Connection: A user's link to a connector
//   - Connector: A catalog entry for a third-party service
//   - SessionState: A snapshot of the client's mutable session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
