// Package source supplies policy text to a session from somewhere durable.
//
// A Source produces a Bundle: the .epl modules plus an optional external
// data document. FileSource reads a file or directory on disk, GitSource
// keeps a local checkout of a remote repository, and Watcher re-loads a
// session when the watched path changes. Failed reloads keep the session's
// last good policy; the sources themselves never touch session state except
// through Load.
package source
