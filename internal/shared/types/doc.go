// Package types provides shared data structures for the library provider.
//
// This package defines the records that flow between the catalog, the
// install pipeline, the auth session and the transport layer.
//
// Core Types:
//   - InstalledApp: Persisted install record keyed by app id
//   - AppMetadata: Flat key/value descriptor of a catalog entry
//   - ItemMetadata: Serialized metadata document returned to callers
//   - LaunchOption: How to start an installed app
//   - ProviderItem: One catalog entry as listed by the provider
//   - InstallOptions: Typed install parameters
//
// State:
//   - Stage: Install state machine phase
//   - ProviderStatus: Derived authentication state
//
// Errors:
//   - Error: Caller-facing failure with a stable code
//   - CodeOf: Resolves the code of any wrapped error
package types
