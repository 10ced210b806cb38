package model

import "time"

// Well-known member roles. Any other non-empty role is accepted as-is.
const (
	RoleParent = "Родитель"
	RoleChild  = "Ребёнок"
)

// PointsPerLevel is the number of points needed to advance one level.
const PointsPerLevel = 100

type FamilyMember struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Points      int       `json:"points"`
	Level       int       `json:"level"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	HasPIN      bool      `json:"has_pin"`
	SortOrder   int       `json:"sort_order"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LevelForPoints derives a member's level from their point total.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return 1 + points/PointsPerLevel
}
