// Package hostfs is the host side of the capability filesystem.
//
// A sandboxed guest cannot touch the filesystem, so every stat, read and
// directory listing is answered by a Host. This package defines that
// contract together with three implementations:
//
//	Funcs   forwards to plain Go function values
//	OS      answers from the real operating system filesystem
//	IOFS    answers from any io/fs.FS (testing/fstest.MapFS for tests)
//
// # Wire Format
//
// Hosts report failures as an Error record carrying a message and an
// optional machine code. Only CodeNotFound has meaning to the guest; every
// other code, and the absence of a code, is a generic failure.
//
// When results cross a linear-memory boundary they travel as a JSON
// envelope, either {"ok": value} or {"err": {"message": ..., "code": ...}}.
package hostfs
