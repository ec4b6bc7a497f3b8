package progress

// Sampler accumulates byte counts and decides when to report them.
// It is not safe for concurrent use; each stream owns one.
type Sampler struct {
	callback Callback
	total    int64
	step     int64
	done     int64
	reported int64
}

// NewSampler creates a sampler. A callback of nil disables reporting.
func NewSampler(total, step int64, callback Callback) *Sampler {
	return &Sampler{
		callback: callback,
		total:    total,
		step:     step,
		reported: -1,
	}
}

// Add records n more bytes and reports when at least step bytes have
// accumulated since the last report.
func (s *Sampler) Add(n int64) {
	s.done += n
	if s.reported < 0 || s.done-s.reported >= s.step {
		s.report()
	}
}

// Flush reports the current count unless it was already reported.
func (s *Sampler) Flush() {
	if s.done != s.reported {
		s.report()
	}
}

// Transferred returns the cumulative count.
func (s *Sampler) Transferred() int64 {
	return s.done
}

func (s *Sampler) report() {
	s.reported = s.done
	if s.callback != nil {
		s.callback(s.done, s.total)
	}
}
