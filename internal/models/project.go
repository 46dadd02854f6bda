package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectPaused    ProjectStatus = "paused"
	ProjectArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectPaused, ProjectArchived:
		return true
	}
	return false
}

type Project struct {
	Meta
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       string        `json:"color"`
	Status      ProjectStatus `json:"status"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	ActivityAt  time.Time     `json:"activity_at"`
}

type MemberRole string

const (
	RoleOwner    MemberRole = "owner"
	RoleMember   MemberRole = "member"
	RoleObserver MemberRole = "observer"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleObserver:
		return true
	}
	return false
}

type ProjectMember struct {
	Meta
	ProjectID uuid.UUID  `json:"project_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joined_at"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// InvitationTTL - срок жизни приглашения. Просроченные не удаляются, а отфильтровываются.
const InvitationTTL = 7 * 24 * time.Hour

type ProjectInvitation struct {
	Meta
	ProjectID uuid.UUID        `json:"project_id"`
	InviterID uuid.UUID        `json:"inviter_id"`
	Email     string           `json:"email"`
	Role      MemberRole       `json:"role"`
	Status    InvitationStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (i *ProjectInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Profile - запись глобального справочника пользователей
type Profile struct {
	Meta
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
