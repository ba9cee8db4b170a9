package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for the journal's key space
const (
	replyPrefix     = "rep"
	replyTimePrefix = "rept"
)

// makeReplyKey generates a key for a journaled reply by correlation id.
func makeReplyKey(correlationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", replyPrefix, correlationID))
}

// makeReplyTimeKey generates a composite key for the time index.
// Format: prefix:timestamp:correlationID
func makeReplyTimeKey(sentAt time.Time, correlationID string) []byte {
	prefix := replyTimePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(correlationID)
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(sentAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], correlationID)
	return buf
}

// correlationIDFromTimeKey recovers the correlation id suffix of a time key.
func correlationIDFromTimeKey(key []byte) string {
	prefixSize := len(replyTimePrefix) + 1 + 8
	if len(key) <= prefixSize {
		return ""
	}
	return string(key[prefixSize:])
}
