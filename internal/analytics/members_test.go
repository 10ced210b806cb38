package analytics

import (
	"testing"

	"github.com/dukerupert/kinfolk/internal/model"
)

func TestRankMembers(t *testing.T) {
	members := []model.FamilyMember{
		{ID: 1, Name: "Мама", Role: model.RoleParent},
		{ID: 2, Name: "Папа", Role: model.RoleParent},
		{ID: 3, Name: "Миша", Role: model.RoleChild},
		{ID: 4, Name: "Оля", Role: model.RoleChild},
	}
	tasks := []model.Task{
		{ID: 1, AssigneeID: ptr(int64(3))},
		{ID: 2, AssigneeID: ptr(int64(3))},
		{ID: 3, AssigneeID: ptr(int64(1))},
		{ID: 4},
		{ID: 5, AssigneeID: ptr(int64(99))},
	}
	events := []model.CalendarEvent{
		{ID: 1, Participants: []int64{1, 2}},
		{ID: 2, Participants: []int64{2, 2, 4}},
	}

	got := RankMembers(members, tasks, events)

	// Members 1-3 tie on 2 and keep their input order.
	want := []struct {
		id                   int64
		tasks, events, total int
	}{
		{1, 1, 1, 2},
		{2, 0, 2, 2},
		{3, 2, 0, 2},
		{4, 0, 1, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d members, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.MemberID != w.id || g.TaskCount != w.tasks || g.EventCount != w.events || g.Total != w.total {
			t.Errorf("rank[%d] = {id:%d tasks:%d events:%d total:%d}, want {id:%d tasks:%d events:%d total:%d}",
				i, g.MemberID, g.TaskCount, g.EventCount, g.Total, w.id, w.tasks, w.events, w.total)
		}
	}
}

func TestRankMembersInvariants(t *testing.T) {
	var members []model.FamilyMember
	for i := int64(1); i <= 6; i++ {
		members = append(members, model.FamilyMember{ID: i})
	}
	var tasks []model.Task
	for i := int64(0); i < 20; i++ {
		tasks = append(tasks, model.Task{ID: i, AssigneeID: ptr(i%4 + 1)})
	}
	events := []model.CalendarEvent{
		{Participants: []int64{1, 5}},
		{Participants: []int64{5, 6}},
		{Participants: []int64{6}},
	}

	got := RankMembers(members, tasks, events)
	for i, a := range got {
		if a.Total != a.TaskCount+a.EventCount {
			t.Errorf("member %d: total %d != %d + %d", a.MemberID, a.Total, a.TaskCount, a.EventCount)
		}
		if i > 0 && got[i-1].Total < a.Total {
			t.Errorf("rank[%d].Total = %d > rank[%d].Total = %d", i, a.Total, i-1, got[i-1].Total)
		}
	}
}

func TestRankMembersTiesKeepInputOrder(t *testing.T) {
	members := []model.FamilyMember{{ID: 10}, {ID: 7}, {ID: 3}, {ID: 8}}

	got := RankMembers(members, nil, nil)

	for i, m := range members {
		if got[i].MemberID != m.ID {
			t.Errorf("rank[%d] = %d, want %d", i, got[i].MemberID, m.ID)
		}
	}
}

func TestRankMembersEmpty(t *testing.T) {
	got := RankMembers(nil, nil, nil)
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("got %d members, want 0", len(got))
	}
}
