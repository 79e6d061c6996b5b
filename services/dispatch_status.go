package services

import "regexp"

// Customer-facing display statuses.
const (
	DisplayPlaced           = "placed"
	DisplayPreparing        = "preparing"
	DisplayBidding          = "bidding"
	DisplayAllAgentsBidding = "all_agents_bidding"
	DisplayNeedsFeeIncrease = "needs_fee_increase"
	DisplayOnTheWay         = "on_the_way"
	DisplayDelivered        = "delivered"
	DisplayCancelled        = "cancelled"
)

// Dispatch engine statuses as reported by the status endpoint.
const (
	DispatchStarting         = "starting"
	DispatchBroadcasted      = "broadcasted"
	DispatchWaitingForBids   = "waiting_for_bids"
	DispatchEscalating       = "escalating"
	DispatchAssigned         = "assigned"
	DispatchNeedsFeeIncrease = "needs_fee_increase"
	DispatchFailed           = "failed"
)

// Dispatch phases.
const (
	PhaseStudentPool = "student_pool"
	PhaseAllAgents   = "all_agents"
	PhaseCompleted   = "completed"
)

// DispatchSnapshot is the slice of the dispatch status document the display
// machine cares about. Nil means no snapshot was available this tick.
type DispatchSnapshot struct {
	Status string
	Phase  string
	Note   string
}

var biddingStatuses = map[string]bool{
	DispatchStarting:       true,
	DispatchBroadcasted:    true,
	DispatchWaitingForBids: true,
	DispatchEscalating:     true,
}

// DeriveCustomerStatus computes the display status for one poll tick from
// the order's own status and the latest dispatch snapshot. It is pure and
// recomputed on every tick; nothing is cached between polls.
func DeriveCustomerStatus(orderStatus string, snap *DispatchSnapshot) string {
	// Terminal order states win over anything the engine still reports.
	switch orderStatus {
	case DisplayDelivered:
		return DisplayDelivered
	case DisplayCancelled:
		return DisplayCancelled
	}

	if snap != nil {
		switch {
		case snap.Status == DispatchNeedsFeeIncrease:
			return DisplayNeedsFeeIncrease
		case biddingStatuses[snap.Status]:
			if snap.Phase == PhaseStudentPool {
				return DisplayBidding
			}
			return DisplayAllAgentsBidding
		case snap.Status == DispatchAssigned || snap.Phase == PhaseCompleted:
			return DisplayOnTheWay
		}
	}

	switch orderStatus {
	case "pending":
		return DisplayPlaced
	case DisplayPreparing, DisplayBidding, DisplayOnTheWay:
		return orderStatus
	}
	return DisplayPlaced
}

// timelineSteps is the customer's five-step order timeline.
var timelineSteps = []string{
	DisplayPlaced,
	DisplayPreparing,
	DisplayBidding,
	DisplayOnTheWay,
	DisplayDelivered,
}

// TimelineStepIndex maps a display status onto the five-step timeline.
// Derived bidding-side states collapse onto the bidding step; cancelled has
// no position and returns -1.
func TimelineStepIndex(display string) int {
	switch display {
	case DisplayAllAgentsBidding, DisplayNeedsFeeIncrease:
		return 2
	case DisplayCancelled:
		return -1
	}
	for i, s := range timelineSteps {
		if s == display {
			return i
		}
	}
	return 0
}

// IsTerminalDisplay reports whether a display status ends the order's
// lifecycle, so watchers can stop and cards can be retired.
func IsTerminalDisplay(display string) bool {
	return display == DisplayDelivered || display == DisplayCancelled
}

// StatusLabel is the human label shown on order cards.
func StatusLabel(display string) string {
	switch display {
	case DisplayPlaced:
		return "Order placed"
	case DisplayPreparing:
		return "Restaurant is preparing"
	case DisplayBidding:
		return "Finding a student courier"
	case DisplayAllAgentsBidding:
		return "Finding a courier"
	case DisplayNeedsFeeIncrease:
		return "Needs a delivery fee increase"
	case DisplayOnTheWay:
		return "On the way"
	case DisplayDelivered:
		return "Delivered"
	case DisplayCancelled:
		return "Cancelled"
	}
	return display
}

var acceptedByRe = regexp.MustCompile(`accepted_by=([A-Za-z0-9_-]+)`)

// AcceptedAgentID extracts the winning agent id embedded in a dispatch note,
// or "" when none is present.
func AcceptedAgentID(note string) string {
	m := acceptedByRe.FindStringSubmatch(note)
	if m == nil {
		return ""
	}
	return m[1]
}
