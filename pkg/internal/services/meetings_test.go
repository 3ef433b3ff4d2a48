package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDatabase(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("unable to open test database: %v", err)
	}
	// An in-memory sqlite database exists per connection; pin the pool to
	// one so every query sees the same database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := database.RunMigration(db); err != nil {
		t.Fatalf("unable to migrate test database: %v", err)
	}

	prev := database.C
	database.C = db
	t.Cleanup(func() { database.C = prev })
}

func newTestAccount(t *testing.T, name string) models.Account {
	t.Helper()
	account, err := CreateAccount(name, name+"@example.com", "hunter22hunter22", nil)
	if err != nil {
		t.Fatalf("unable to create account %s: %v", name, err)
	}
	return account
}

func TestCreateOrGetMeetingIdempotence(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")
	bob := newTestAccount(t, "bob")

	first, err := CreateOrGetMeeting("call_1", alice, models.Meeting{Title: "Standup"})
	if err != nil {
		t.Fatalf("first CreateOrGetMeeting returned error: %v", err)
	}
	if first.Status != models.MeetingStatusScheduled {
		t.Errorf("new meeting status = %s, want scheduled", first.Status)
	}
	if first.ParticipantCount != 0 || first.Duration != 0 {
		t.Errorf("new meeting should start with zero counters, got count=%d duration=%d",
			first.ParticipantCount, first.Duration)
	}

	// Another user racing on the same call id converges on the same record.
	second, err := CreateOrGetMeeting("call_1", bob, models.Meeting{Title: "Hijack"})
	if err != nil {
		t.Fatalf("second CreateOrGetMeeting returned error: %v", err)
	}
	if second.ID != first.ID || second.Uuid != first.Uuid {
		t.Errorf("expected the same record, got ids %d and %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed across createOrGet calls")
	}
	if second.HostID != alice.ID {
		t.Errorf("host changed to %d, want %d", second.HostID, alice.ID)
	}
	if second.Title != "Standup" {
		t.Errorf("title changed to %q on repeated create", second.Title)
	}
}

func TestRecordJoinCountsEachUserOnce(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")
	bob := newTestAccount(t, "bob")

	if _, err := CreateOrGetMeeting("call_join", alice, models.Meeting{}); err != nil {
		t.Fatalf("CreateOrGetMeeting returned error: %v", err)
	}

	meeting, err := RecordJoin("call_join", alice)
	if err != nil {
		t.Fatalf("RecordJoin returned error: %v", err)
	}
	if meeting.Status != models.MeetingStatusOngoing {
		t.Errorf("status after first join = %s, want ongoing", meeting.Status)
	}
	if meeting.StartedAt == nil {
		t.Error("first join should stamp the start time")
	}
	if meeting.ParticipantCount != 1 {
		t.Errorf("participant count = %d, want 1", meeting.ParticipantCount)
	}

	// Rejoining must not double count.
	meeting, err = RecordJoin("call_join", alice)
	if err != nil {
		t.Fatalf("repeated RecordJoin returned error: %v", err)
	}
	if meeting.ParticipantCount != 1 {
		t.Errorf("participant count after rejoin = %d, want 1", meeting.ParticipantCount)
	}

	meeting, err = RecordJoin("call_join", bob)
	if err != nil {
		t.Fatalf("RecordJoin for second user returned error: %v", err)
	}
	if meeting.ParticipantCount != 2 {
		t.Errorf("participant count = %d, want 2", meeting.ParticipantCount)
	}
	if len(meeting.Participants) != 2 {
		t.Errorf("participant rows = %d, want 2", len(meeting.Participants))
	}
}

func TestRecordEndDerivesFlooredDuration(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")

	if _, err := CreateOrGetMeeting("call_end", alice, models.Meeting{}); err != nil {
		t.Fatalf("CreateOrGetMeeting returned error: %v", err)
	}
	if _, err := RecordJoin("call_end", alice); err != nil {
		t.Fatalf("RecordJoin returned error: %v", err)
	}

	// Backdate the start so the derived duration is observable: 125
	// seconds floors to 2 minutes.
	started := time.Now().Add(-125 * time.Second)
	if err := database.C.Model(&models.Meeting{}).
		Where("call_id = ?", "call_end").
		Update("started_at", started).Error; err != nil {
		t.Fatalf("unable to backdate meeting: %v", err)
	}

	meeting, err := RecordEnd("call_end")
	if err != nil {
		t.Fatalf("RecordEnd returned error: %v", err)
	}
	if meeting.Status != models.MeetingStatusCompleted {
		t.Errorf("status = %s, want completed", meeting.Status)
	}
	if meeting.EndedAt == nil {
		t.Fatal("RecordEnd should stamp the end time")
	}
	if meeting.Duration != 2 {
		t.Errorf("duration = %d minutes, want 2", meeting.Duration)
	}
}

func TestUpdateMeetingStatusRejectsIllegalTransitions(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")

	if _, err := CreateOrGetMeeting("call_fsm", alice, models.Meeting{}); err != nil {
		t.Fatalf("CreateOrGetMeeting returned error: %v", err)
	}

	// scheduled -> completed is not in the table.
	if _, err := UpdateMeetingStatus("call_fsm", models.MeetingStatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("scheduled -> completed error = %v, want ErrInvalidTransition", err)
	}
	meeting, _ := GetMeetingByCallID("call_fsm")
	if meeting.Status != models.MeetingStatusScheduled {
		t.Errorf("rejected transition mutated status to %s", meeting.Status)
	}

	meeting, err := UpdateMeetingStatus("call_fsm", models.MeetingStatusOngoing)
	if err != nil {
		t.Fatalf("scheduled -> ongoing returned error: %v", err)
	}
	if meeting.StartedAt == nil {
		t.Error("ongoing transition should stamp the start time")
	}

	if _, err := UpdateMeetingStatus("call_fsm", models.MeetingStatusCompleted); err != nil {
		t.Fatalf("ongoing -> completed returned error: %v", err)
	}

	// Completed is terminal.
	if _, err := UpdateMeetingStatus("call_fsm", models.MeetingStatusOngoing); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed -> ongoing error = %v, want ErrInvalidTransition", err)
	}
	if _, err := CancelMeeting("call_fsm"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed -> cancelled error = %v, want ErrInvalidTransition", err)
	}

	// Joining a finished meeting is refused as well.
	if _, err := RecordJoin("call_fsm", alice); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("join on completed meeting error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateMeetingStatusUnknownCall(t *testing.T) {
	newTestDatabase(t)

	if _, err := UpdateMeetingStatus("missing", models.MeetingStatusOngoing); !errors.Is(err, ErrMeetingNotFound) {
		t.Errorf("error = %v, want ErrMeetingNotFound", err)
	}
}

func TestListMeetingsForUserOrdersRecentFirst(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")
	bob := newTestAccount(t, "bob")

	for i, callId := range []string{"call_a", "call_b", "call_c"} {
		meeting, err := CreateOrGetMeeting(callId, alice, models.Meeting{})
		if err != nil {
			t.Fatalf("CreateOrGetMeeting(%s) returned error: %v", callId, err)
		}
		// Space out creation times; sqlite timestamps are coarse.
		created := time.Now().Add(time.Duration(i-3) * time.Minute)
		if err := database.C.Model(&models.Meeting{}).
			Where("id = ?", meeting.ID).
			Update("created_at", created).Error; err != nil {
			t.Fatalf("unable to adjust created_at: %v", err)
		}
	}
	if _, err := CreateOrGetMeeting("call_other", bob, models.Meeting{}); err != nil {
		t.Fatalf("CreateOrGetMeeting returned error: %v", err)
	}

	meetings, err := ListMeetingsForUser(alice, 10, 0)
	if err != nil {
		t.Fatalf("ListMeetingsForUser returned error: %v", err)
	}
	if len(meetings) != 3 {
		t.Fatalf("listed %d meetings, want 3", len(meetings))
	}
	if meetings[0].CallID != "call_c" || meetings[2].CallID != "call_a" {
		t.Errorf("unexpected ordering: %s, %s, %s",
			meetings[0].CallID, meetings[1].CallID, meetings[2].CallID)
	}

	// Bob joined nothing of Alice's, he only sees his own meeting.
	meetings, err = ListMeetingsForUser(bob, 10, 0)
	if err != nil {
		t.Fatalf("ListMeetingsForUser returned error: %v", err)
	}
	if len(meetings) != 1 || meetings[0].CallID != "call_other" {
		t.Errorf("bob should only see call_other, got %d meetings", len(meetings))
	}

	// Once Bob joins one, it shows up in his listing too.
	if _, err := RecordJoin("call_a", bob); err != nil {
		t.Fatalf("RecordJoin returned error: %v", err)
	}
	meetings, _ = ListMeetingsForUser(bob, 10, 0)
	if len(meetings) != 2 {
		t.Errorf("bob should see 2 meetings after joining, got %d", len(meetings))
	}
}

func TestListMeetingHistoryOnlyFinished(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")

	if _, err := CreateOrGetMeeting("call_live", alice, models.Meeting{}); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateOrGetMeeting("call_done", alice, models.Meeting{}); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordJoin("call_done", alice); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordEnd("call_done"); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateOrGetMeeting("call_off", alice, models.Meeting{}); err != nil {
		t.Fatal(err)
	}
	if _, err := CancelMeeting("call_off"); err != nil {
		t.Fatal(err)
	}

	history, err := ListMeetingHistory(alice, 10)
	if err != nil {
		t.Fatalf("ListMeetingHistory returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d meetings, want 2", len(history))
	}
	for _, meeting := range history {
		if !meeting.IsOver() {
			t.Errorf("history contains %s meeting %s", meeting.Status, meeting.CallID)
		}
	}
}

func TestEditMeetingDurationConflict(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")

	meeting, err := CreateOrGetMeeting("call_edit", alice, models.Meeting{Title: "Before"})
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now().Add(-10 * time.Minute)
	ended := time.Now()

	// A duration within tolerance of end-start is accepted, but the
	// derived value stays authoritative.
	updated, err := EditMeeting(meeting.Uuid, MeetingPatch{
		Title:     lo.ToPtr("After"),
		StartedAt: &started,
		EndedAt:   &ended,
		Duration:  lo.ToPtr(10),
	})
	if err != nil {
		t.Fatalf("EditMeeting returned error: %v", err)
	}
	if updated.Title != "After" {
		t.Errorf("title = %q, want After", updated.Title)
	}
	if updated.Duration != 9 && updated.Duration != 10 {
		t.Errorf("derived duration = %d, want about 10", updated.Duration)
	}

	// A wildly conflicting duration is rejected.
	if _, err := EditMeeting(meeting.Uuid, MeetingPatch{Duration: lo.ToPtr(45)}); err == nil {
		t.Error("conflicting duration should be rejected")
	}
}

func TestRecordLeaveTracksRemaining(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")
	bob := newTestAccount(t, "bob")

	if _, err := CreateOrGetMeeting("call_leave", alice, models.Meeting{}); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordJoin("call_leave", alice); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordJoin("call_leave", bob); err != nil {
		t.Fatal(err)
	}

	meeting, remaining, err := RecordLeave("call_leave", bob)
	if err != nil {
		t.Fatalf("RecordLeave returned error: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
	if meeting.Status != models.MeetingStatusOngoing {
		t.Errorf("a participant leaving should not end the meeting, status = %s", meeting.Status)
	}
	if meeting.ParticipantCount != 2 {
		t.Errorf("leave should not decrement the counter, count = %d", meeting.ParticipantCount)
	}

	_, remaining, err = RecordLeave("call_leave", alice)
	if err != nil {
		t.Fatalf("RecordLeave returned error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestAutoCancelStaleMeetings(t *testing.T) {
	newTestDatabase(t)
	alice := newTestAccount(t, "alice")

	meeting, err := CreateOrGetMeeting("call_stale", alice, models.Meeting{})
	if err != nil {
		t.Fatal(err)
	}
	if err := database.C.Model(&models.Meeting{}).
		Where("id = ?", meeting.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := CreateOrGetMeeting("call_fresh", alice, models.Meeting{}); err != nil {
		t.Fatal(err)
	}

	DoAutoCancelStaleMeetings()

	stale, _ := GetMeetingByCallID("call_stale")
	if stale.Status != models.MeetingStatusCancelled {
		t.Errorf("stale meeting status = %s, want cancelled", stale.Status)
	}
	fresh, _ := GetMeetingByCallID("call_fresh")
	if fresh.Status != models.MeetingStatusScheduled {
		t.Errorf("fresh meeting status = %s, want scheduled", fresh.Status)
	}
}
