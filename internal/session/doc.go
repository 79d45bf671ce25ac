// Package session implements the durable store of resource sessions.
//
// The store is a single JSON document mapping resource name to Record:
//
//	{
//	  "version": 1,
//	  "sessions": {
//	    "box1": {"name": "box1", "ownerId": "42", "state": "running", ...}
//	  }
//	}
//
// Documents without the envelope are read as the flat per-name layout of
// earlier releases and rewritten in the current layout on the next save.
//
// Writes go through a Backend. FileBackend writes a temporary file in the
// target directory, syncs it, renames it over the target and syncs the
// directory, so a reader sees either the old or the new document. It also
// implements Locker with flock(2) on a sibling ".lock" file, which the
// Store holds for the duration of every read-modify-write cycle.
//
// Unparseable data is reported as StoreCorrupt and never treated as an
// empty store.
package session
