// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - PlatformAPI: REST access to /api/platform_user (sessions, connectors,
//     connections, authorizations, platform, CRM mapping)
//   - RealtimeDialer, Socket, Channel: the pub/sub socket carrying
//     authorization status updates
//   - WindowOpener, Window: the popup hosting the vendor's consent UI
//
// # Optional Interfaces
//
// These can be nil - the client degrades gracefully:
//
//   - Navigator: moves the host page to the login redirect. Without it the
//     default token callback fails with domain.ErrLoginRedirectMissing.
//   - ConfigStore: persisted client configuration. Without it defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
