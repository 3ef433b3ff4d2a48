package models

import "testing"

func TestCanTransitMeetingStatus(t *testing.T) {
	cases := []struct {
		name    string
		from    MeetingStatus
		to      MeetingStatus
		allowed bool
	}{
		{"scheduled to ongoing", MeetingStatusScheduled, MeetingStatusOngoing, true},
		{"scheduled to cancelled", MeetingStatusScheduled, MeetingStatusCancelled, true},
		{"scheduled to completed", MeetingStatusScheduled, MeetingStatusCompleted, false},
		{"ongoing to completed", MeetingStatusOngoing, MeetingStatusCompleted, true},
		{"ongoing to cancelled", MeetingStatusOngoing, MeetingStatusCancelled, true},
		{"ongoing to scheduled", MeetingStatusOngoing, MeetingStatusScheduled, false},
		{"completed to ongoing", MeetingStatusCompleted, MeetingStatusOngoing, false},
		{"completed to cancelled", MeetingStatusCompleted, MeetingStatusCancelled, false},
		{"cancelled to ongoing", MeetingStatusCancelled, MeetingStatusOngoing, false},
		{"cancelled to completed", MeetingStatusCancelled, MeetingStatusCompleted, false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitMeetingStatus(tt.from, tt.to); got != tt.allowed {
				t.Errorf("CanTransitMeetingStatus(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestMeetingIsOver(t *testing.T) {
	for _, status := range []MeetingStatus{MeetingStatusScheduled, MeetingStatusOngoing} {
		if (Meeting{Status: status}).IsOver() {
			t.Errorf("meeting in %s status should not be over", status)
		}
	}
	for _, status := range []MeetingStatus{MeetingStatusCompleted, MeetingStatusCancelled} {
		if !(Meeting{Status: status}).IsOver() {
			t.Errorf("meeting in %s status should be over", status)
		}
	}
}
