package domain

import (
	"sync/atomic"
	"time"
)

var lastTaskID int64

// NextTaskID returns a creation-time based identifier in milliseconds. When the
// clock has not advanced since the previous call the previous value plus one is
// used, so identifiers never repeat within a process.
func NextTaskID() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastTaskID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTaskID, last, now) {
			return now
		}
	}
}
