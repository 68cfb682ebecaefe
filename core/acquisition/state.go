package acquisition

// State is the progress of one endpoint through a fetch cycle.
type State int

const (
	StateNeedsFetch State = iota
	StateFetching
	StateFetchFailed
	StateParsed
	StateCached
)

func (s State) String() string {
	switch s {
	case StateNeedsFetch:
		return "needs_fetch"
	case StateFetching:
		return "fetching"
	case StateFetchFailed:
		return "fetch_failed"
	case StateParsed:
		return "parsed"
	case StateCached:
		return "cached"
	default:
		return "unknown"
	}
}
