// Package registry persists install records, one JSON document per app id.
//
// The registry is the side record of what has been installed and where. It
// is reconciled against the filesystem on read: a record whose installed
// path has disappeared is dropped unless an install for that id is running.
//
// Components:
//   - Manager: Record CRUD with an in-memory cache and per-id write locks
//   - Store: Narrow persistence interface, DiskStore writes atomically
//   - Reconciler: Drops records that no longer match the disk
//
// Storage Structure:
//   - Path: <data>/apps/{app-id}.json
//   - Pretty-printed JSON, written via temp file + rename
//
// Example Usage:
//
//	manager := registry.NewManager(registry.NewDiskStore(layout.InstalledAppsDir()), logger)
//	err := manager.Save(ctx, record)
//	record, err := manager.Load(ctx, "game1")
//	records, err := manager.List(ctx)
package registry
