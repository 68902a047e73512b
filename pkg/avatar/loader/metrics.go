package loader

import "time"

func recordDispatch(m Metrics) {
	if m != nil {
		m.RecordDispatch()
	}
}

func recordRejected(m Metrics) {
	if m != nil {
		m.RecordRejected()
	}
}

func recordDelivery(m Metrics, delivered bool) {
	if m != nil {
		m.RecordDelivery(delivered)
	}
}

func recordResolution(m Metrics, src Source) {
	if m != nil {
		m.RecordResolution(src)
	}
}

func observeFetch(m Metrics, src Source, d time.Duration) {
	if m != nil {
		m.ObserveFetch(src, d)
	}
}
