package domain

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
	StatusDeleted  Status = "DELETED"
)

// Campaign is the top level of the advertising hierarchy
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// AdSet belongs to exactly one campaign
type AdSet struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Ad belongs to exactly one ad set
type Ad struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

func (c Campaign) EntityID() string { return c.ID }
func (a AdSet) EntityID() string    { return a.ID }
func (a Ad) EntityID() string       { return a.ID }

func (c Campaign) SearchText() []string { return []string{c.Name} }
func (a AdSet) SearchText() []string    { return []string{a.Name} }
func (a Ad) SearchText() []string       { return []string{a.Name} }
