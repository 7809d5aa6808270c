// Package catalog resolves application bundles across scan roots and owns
// the install records that say what is installed where.
//
// A catalog entry is a directory named by its app id holding a descriptor
// (metadata.yaml, metadata.yml, metadata.toml or metadata.json). Entries
// are looked up across roots in scan order; the first root wins.
//
// Which source answers "is this installed" is set by the source mode:
//   - scan: directory presence on a scan root
//   - registry: persisted install records only
//   - merged: records first, scanned entries fill in the rest
//
// Records are reconciled on read: a record whose path vanished is dropped.
package catalog
