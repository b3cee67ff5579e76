// Package snapshot serializes the upload queue into one versioned JSON
// document and stores it under a single key of a kvstore.Store.
//
// Every save writes the whole queue, never a diff. Loading never fails:
// a missing, unreadable or unparsable value yields an empty queue and a
// warning in the log. Unversioned flat arrays written by the earlier browser
// client are read as version 0 and migrated on the fly.
package snapshot
