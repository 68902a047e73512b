package cache

// Metrics receives cache events. Implementations must be cheap: they are
// called with the cache lock held.
//
// A nil Metrics is valid and records nothing.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordInsert(bytes int64)
	RecordEviction()
	RecordSize(bytes int64, entries int)
}

func recordHit(m Metrics) {
	if m != nil {
		m.RecordHit()
	}
}

func recordMiss(m Metrics) {
	if m != nil {
		m.RecordMiss()
	}
}

func recordInsert(m Metrics, bytes int64) {
	if m != nil {
		m.RecordInsert(bytes)
	}
}

func recordEviction(m Metrics) {
	if m != nil {
		m.RecordEviction()
	}
}

func recordSize(m Metrics, bytes int64, entries int) {
	if m != nil {
		m.RecordSize(bytes, entries)
	}
}
