// Package archive unpacks downloaded app payloads.
//
// Supported formats are zip, tar, tar.gz and tar.zst. The format is picked
// by content sniffing, falling back to the file extension. Entries that
// would land outside the destination are rejected.
package archive
