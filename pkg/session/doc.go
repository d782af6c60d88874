/*
Package session serializes access to saved journal snapshots.

A Manager sits in front of any ports.SnapshotStore. Operations on the same
session run one at a time inside the process, using reference-counted mutexes
that are dropped once idle, and across processes when a ports.Locker is set.
*/
package session
