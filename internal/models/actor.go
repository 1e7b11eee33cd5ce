package models

// Actor is the authenticated user a mutation is attributed to.
type Actor struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	System bool   `json:"system,omitempty"`
}

// SystemActor is used only by background jobs, never as a fallback for requests.
var SystemActor = Actor{Name: "system", System: true}

func (a Actor) Valid() bool {
	return a.ID != 0 || a.System
}
