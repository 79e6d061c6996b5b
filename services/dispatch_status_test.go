package services

import "testing"

func TestDeriveCustomerStatus(t *testing.T) {
	snap := func(status, phase string) *DispatchSnapshot {
		return &DispatchSnapshot{Status: status, Phase: phase}
	}

	tests := []struct {
		name        string
		orderStatus string
		snap        *DispatchSnapshot
		want        string
	}{
		{"delivered wins over active snapshot", "delivered", snap("waiting_for_bids", "student_pool"), "delivered"},
		{"cancelled is its own terminal state", "cancelled", snap("assigned", "completed"), "cancelled"},
		{"needs fee increase", "preparing", snap("needs_fee_increase", "all_agents"), "needs_fee_increase"},
		{"starting in student pool", "pending", snap("starting", "student_pool"), "bidding"},
		{"broadcasted in student pool", "pending", snap("broadcasted", "student_pool"), "bidding"},
		{"waiting in student pool", "preparing", snap("waiting_for_bids", "student_pool"), "bidding"},
		{"escalating leaves student pool", "preparing", snap("escalating", "all_agents"), "all_agents_bidding"},
		{"waiting in open pool", "preparing", snap("waiting_for_bids", "all_agents"), "all_agents_bidding"},
		{"assigned", "preparing", snap("assigned", "completed"), "on_the_way"},
		{"phase completed without assigned status", "preparing", snap("failed", "completed"), "on_the_way"},
		{"no snapshot pending", "pending", nil, "placed"},
		{"no snapshot preparing", "preparing", nil, "preparing"},
		{"no snapshot on the way", "on_the_way", nil, "on_the_way"},
		{"failed snapshot falls through to order status", "preparing", snap("failed", "all_agents"), "preparing"},
		{"unknown order status defaults to placed", "confirmed", nil, "placed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCustomerStatus(tt.orderStatus, tt.snap); got != tt.want {
				t.Errorf("DeriveCustomerStatus(%q, %+v) = %q, want %q", tt.orderStatus, tt.snap, got, tt.want)
			}
		})
	}
}

func TestTimelineStepIndex(t *testing.T) {
	tests := []struct {
		display string
		want    int
	}{
		{"placed", 0},
		{"preparing", 1},
		{"bidding", 2},
		{"all_agents_bidding", 2},
		{"needs_fee_increase", 2},
		{"on_the_way", 3},
		{"delivered", 4},
		{"cancelled", -1},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := TimelineStepIndex(tt.display); got != tt.want {
			t.Errorf("TimelineStepIndex(%q) = %d, want %d", tt.display, got, tt.want)
		}
	}
}

func TestIsTerminalDisplay(t *testing.T) {
	tests := []struct {
		display string
		want    bool
	}{
		{DisplayDelivered, true},
		{DisplayCancelled, true},
		{DisplayPlaced, false},
		{DisplayBidding, false},
		{DisplayOnTheWay, false},
		{DisplayNeedsFeeIncrease, false},
	}
	for _, tt := range tests {
		if got := IsTerminalDisplay(tt.display); got != tt.want {
			t.Errorf("IsTerminalDisplay(%q) = %v, want %v", tt.display, got, tt.want)
		}
	}
}

func TestAcceptedAgentID(t *testing.T) {
	tests := []struct {
		note string
		want string
	}{
		{"phase 1 winner accepted_by=17", "17"},
		{"accepted_by=agent_42 after escalation", "agent_42"},
		{"no winner yet", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := AcceptedAgentID(tt.note); got != tt.want {
			t.Errorf("AcceptedAgentID(%q) = %q, want %q", tt.note, got, tt.want)
		}
	}
}
