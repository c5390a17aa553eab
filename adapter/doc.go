// Package adapter is the boundary between a sandboxed host and the
// resolution engine.
//
// It owns three handle types:
//
//	Lockfile   one parsed lock document, queried by dependency specifier
//	Workspace  one discovered workspace tree, shared by its resolvers
//	Resolver   one resolver, projecting every outcome to a single string
//
// All filesystem access goes through a hostfs.Host wrapped by package
// bridge. Engine failures are flattened to opaque messages with
// errors.Flatten; malformed input fails with errors.KindInvalidInput; the
// two resolution outcomes the host cannot load fail with
// ErrWorkspaceNpmPackage and ErrWorkspacePackageJSONDep.
//
// Handles are immutable once constructed and safe for concurrent reads.
package adapter
