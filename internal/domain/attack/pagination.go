package attack

// PageSize is the number of attacks the Torn API returns per request
const PageSize = 100

// StopReason explains a pagination decision
type StopReason string

const (
	ReasonNoMoreAttacks    StopReason = "no_more_attacks"
	ReasonPartialPage      StopReason = "partial_page"
	ReasonReachedStartTime StopReason = "reached_start_time"
	ReasonContinue         StopReason = "continue"
)

// PageDecision is the outcome of analyzing one page of a backward fetch
type PageDecision struct {
	Stop     bool
	Reason   StopReason
	Oldest   int64
	Received int
	// NextTo is the upper bound for the next request when not stopping
	NextTo int64
}

// NextPage decides whether a backward fetch (newest first, walking "to"
// down towards "from") needs another request.
//
// Pure function: Makes pagination decision based on page results
func NextPage(received int, oldest, from int64, pageSize int) PageDecision {
	decision := PageDecision{Oldest: oldest, Received: received}

	switch {
	case received == 0:
		decision.Stop, decision.Reason = true, ReasonNoMoreAttacks
	case received < pageSize:
		decision.Stop, decision.Reason = true, ReasonPartialPage
	case oldest <= from:
		decision.Stop, decision.Reason = true, ReasonReachedStartTime
	default:
		decision.Reason = ReasonContinue
		decision.NextTo = oldest - 1
	}

	return decision
}
