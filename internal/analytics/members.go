package analytics

import (
	"sort"

	"github.com/dukerupert/kinfolk/internal/model"
)

// MemberActivity is a member's combined task and event involvement.
type MemberActivity struct {
	MemberID    int64  `json:"member_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	AvatarEmoji string `json:"avatar_emoji"`
	TaskCount   int    `json:"task_count"`
	EventCount  int    `json:"event_count"`
	Total       int    `json:"total"`
}

// RankMembers counts assigned tasks and attended events for each member and
// orders the result by total, highest first. Ties keep the order of members.
func RankMembers(members []model.FamilyMember, tasks []model.Task, events []model.CalendarEvent) []MemberActivity {
	taskCounts := make(map[int64]int)
	for _, t := range tasks {
		if t.AssigneeID != nil {
			taskCounts[*t.AssigneeID]++
		}
	}

	eventCounts := make(map[int64]int)
	for _, e := range events {
		seen := make(map[int64]bool, len(e.Participants))
		for _, id := range e.Participants {
			if seen[id] {
				continue
			}
			seen[id] = true
			eventCounts[id]++
		}
	}

	ranked := make([]MemberActivity, 0, len(members))
	for _, m := range members {
		a := MemberActivity{
			MemberID:    m.ID,
			Name:        m.Name,
			Role:        m.Role,
			AvatarEmoji: m.AvatarEmoji,
			TaskCount:   taskCounts[m.ID],
			EventCount:  eventCounts[m.ID],
		}
		a.Total = a.TaskCount + a.EventCount
		ranked = append(ranked, a)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	return ranked
}
