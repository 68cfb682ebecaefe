package metrics

// MultiSink fans events out to multiple sinks. Optional recorder interfaces
// are forwarded only to sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRate forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRate(ev RateEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRate(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordFetch forwards fetch events.
func (m *MultiSink) RecordFetch(ev FetchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FetchRecorder); ok {
			if err := rec.RecordFetch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInvalidation forwards invalidation events.
func (m *MultiSink) RecordInvalidation(ev InvalidationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(InvalidationRecorder); ok {
			if err := rec.RecordInvalidation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBrightness forwards brightness events.
func (m *MultiSink) RecordBrightness(ev BrightnessEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BrightnessRecorder); ok {
			if err := rec.RecordBrightness(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordWatchdog forwards watchdog events.
func (m *MultiSink) RecordWatchdog(ev WatchdogEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(WatchdogRecorder); ok {
			if err := rec.RecordWatchdog(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDisplay forwards renderer counters.
func (m *MultiSink) RecordDisplay(ev DisplayEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DisplayRecorder); ok {
			if err := rec.RecordDisplay(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
