package models

import (
	"sort"

	"github.com/postmottak/mailroom/internal/enum"
)

// RoutingDecision is the outcome of matching one message against the active
// threads. Exactly one of the three outcomes applies; Candidates is only
// populated for ambiguous decisions and is sorted for stable reporting.
type RoutingDecision struct {
	Outcome    enum.RoutingOutcome
	ThreadID   string
	Candidates []string
	Addresses  []string
}

func RoutedDecision(threadID string, addresses []string) RoutingDecision {
	return RoutingDecision{
		Outcome:   enum.RoutingRouted,
		ThreadID:  threadID,
		Addresses: addresses,
	}
}

func NoMatchDecision(addresses []string) RoutingDecision {
	return RoutingDecision{
		Outcome:   enum.RoutingNoMatch,
		Addresses: addresses,
	}
}

func AmbiguousDecision(candidates, addresses []string) RoutingDecision {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)
	return RoutingDecision{
		Outcome:    enum.RoutingAmbiguous,
		Candidates: sorted,
		Addresses:  addresses,
	}
}
