package configurator

type stampState uint8

const (
	stampUnknown stampState = iota
	stampComputing
	stampComputed
)

// stamp memoizes a change stamp. A computed zero is a valid value and is
// not recomputed. Callers hold the owning site's mutex.
type stamp struct {
	state stampState
	value int64
}

// get returns the memoized value, computing it on first use. A re-entrant
// call made while the value is being computed sees the previous value.
func (s *stamp) get(compute func() int64) int64 {
	if s.state != stampUnknown {
		return s.value
	}
	s.state = stampComputing
	s.value = compute()
	s.state = stampComputed
	return s.value
}

// known returns the value if it has been computed.
func (s *stamp) known() (int64, bool) {
	return s.value, s.state == stampComputed
}

func (s *stamp) set(v int64) {
	s.state = stampComputed
	s.value = v
}

func (s *stamp) invalidate() {
	s.state = stampUnknown
	s.value = 0
}
