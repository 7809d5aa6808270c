// Package install runs app installs as cancellable background sessions.
//
// An install moves through Resolving, Preallocating, Downloading, an
// optional Verifying stage, Extracting and Finalizing. Resolving and
// Preallocating run on the caller's goroutine so bad metadata fails the
// call itself; everything after runs on a detached goroutine that reports
// only through events.
//
// At most one session exists per app id. A second install, or an
// uninstall, of an id with a live session fails with already_in_progress.
package install
