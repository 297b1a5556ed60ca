package main

import "time"

// QueueEntry is one player waiting for a world slot
type QueueEntry struct {
	PeerID       string
	JoinedAt     time.Time
	DoorOpenedAt time.Time // zero while the join window is closed
	Index        uint64    // monotonically increasing join order
}

// DoorOpen reports whether the entry currently holds the join window
func (e *QueueEntry) DoorOpen() bool {
	return !e.DoorOpenedAt.IsZero()
}

// AdmissionQueue is the FIFO gating re-entry into the active player set
type AdmissionQueue struct {
	entries   []*QueueEntry
	nextIndex uint64
}

// Enqueue appends peerID unless it is already queued
func (q *AdmissionQueue) Enqueue(peerID string, now time.Time) bool {
	if q.Position(peerID) > 0 {
		return false
	}
	q.nextIndex++
	q.entries = append(q.entries, &QueueEntry{PeerID: peerID, JoinedAt: now, Index: q.nextIndex})
	return true
}

// Remove deletes peerID from the queue
func (q *AdmissionQueue) Remove(peerID string) bool {
	for i, e := range q.entries {
		if e.PeerID == peerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Position returns the 1-based queue position, or 0 if not queued
func (q *AdmissionQueue) Position(peerID string) int {
	for i, e := range q.entries {
		if e.PeerID == peerID {
			return i + 1
		}
	}
	return 0
}

// Head returns the first entry, or nil
func (q *AdmissionQueue) Head() *QueueEntry {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// Entry returns the entry for peerID, or nil
func (q *AdmissionQueue) Entry(peerID string) *QueueEntry {
	for _, e := range q.entries {
		if e.PeerID == peerID {
			return e
		}
	}
	return nil
}

// MoveToBack sends peerID to the tail with a fresh join index and a closed window
func (q *AdmissionQueue) MoveToBack(peerID string) bool {
	for i, e := range q.entries {
		if e.PeerID != peerID {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		q.nextIndex++
		e.Index = q.nextIndex
		e.DoorOpenedAt = time.Time{}
		q.entries = append(q.entries, e)
		return true
	}
	return false
}

// Len returns the number of queued players
func (q *AdmissionQueue) Len() int {
	return len(q.entries)
}

// Entries returns the queue in order
func (q *AdmissionQueue) Entries() []*QueueEntry {
	out := make([]*QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}
