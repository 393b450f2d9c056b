package models

import (
	"math/big"
	"strings"
	"time"
)

// WaveRecord is one recorded wave. Values are immutable once created.
type WaveRecord struct {
	Address   string
	Timestamp time.Time
	Message   string
}

// MaxTimestamp is the latest time a record can carry, 9999-12-31T23:59:59Z
var MaxTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// TimestampInRange reports whether a contract timestamp is representable
// without clamping
func TimestampInRange(timestamp *big.Int) bool {
	if timestamp == nil || timestamp.Sign() < 0 {
		return false
	}
	return timestamp.IsInt64() && timestamp.Int64() <= MaxTimestamp.Unix()
}

// NewWaveRecord builds a record from the raw contract values.
// The timestamp is in seconds since the epoch and is stored in UTC.
// Values past MaxTimestamp are clamped to it; a nil timestamp is the epoch.
func NewWaveRecord(address string, timestamp *big.Int, message string) WaveRecord {
	var secs int64
	switch {
	case timestamp == nil || timestamp.Sign() < 0:
	case TimestampInRange(timestamp):
		secs = timestamp.Int64()
	default:
		secs = MaxTimestamp.Unix()
	}
	return WaveRecord{
		Address:   address,
		Timestamp: time.Unix(secs, 0).UTC(),
		Message:   message,
	}
}

// ShortAddress returns the address shortened to 0x1234…abcd for narrow layouts
func (r WaveRecord) ShortAddress() string {
	return ShortenAddress(r.Address)
}

// ShortenAddress shortens a hex address, leaving short strings untouched
func ShortenAddress(addr string) string {
	if len(addr) <= 12 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
