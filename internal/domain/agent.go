package domain

import "github.com/google/uuid"

// Agent is the content-producing profile a schedule runs on behalf of.
type Agent struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	Name      string
	Expertise string
	Persona   string
	Tone      string
	IsActive  bool
}
