package models

import "sync"

// WaveLog is the ordered, append-only list of waves seen in a session.
// Entries are never removed or reordered. It is safe for concurrent use.
type WaveLog struct {
	mu      sync.RWMutex
	history []WaveRecord // loaded from getAllWaves
	live    []WaveRecord // delivered by the event subscription
	seeded  bool
}

// NewWaveLog returns an empty log
func NewWaveLog() *WaveLog {
	return &WaveLog{}
}

// Append adds one record at the end of the log
func (l *WaveLog) Append(r WaveRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.live = append(l.live, r)
}

// Seed places the contract's recorded history ahead of the live records.
// Only the first call has an effect; it reports whether the history was applied.
func (l *WaveLog) Seed(history []WaveRecord) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seeded {
		return false
	}
	l.history = append([]WaveRecord(nil), history...)
	l.seeded = true
	return true
}

// Seeded reports whether the history has been loaded
func (l *WaveLog) Seeded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seeded
}

// Records returns a copy of all records in order
func (l *WaveLog) Records() []WaveRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]WaveRecord, 0, len(l.history)+len(l.live))
	out = append(out, l.history...)
	return append(out, l.live...)
}

// Live returns a copy of the records delivered since the log was created
func (l *WaveLog) Live() []WaveRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]WaveRecord(nil), l.live...)
}

// Len returns the total number of records
func (l *WaveLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history) + len(l.live)
}
