package member

import (
	"fmt"
	"strings"
	"time"
)

// Member is a registered club player from the backend roster.
type Member struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Executive is a committee position shown on the dashboard.
type Executive struct {
	Role string
	Name string
}

func (m Member) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("member id must be greater than zero")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("member name is required")
	}
	return nil
}

// IDByName builds the name-to-id lookup the attendance sheet needs. Names
// are matched after trimming; later duplicates keep the first id seen.
func IDByName(members []Member) map[string]int64 {
	out := make(map[string]int64, len(members))
	for _, m := range members {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}
		out[name] = m.ID
	}
	return out
}

func DefaultExecutives() []Executive {
	return []Executive{
		{Role: "President", Name: "TBD"},
		{Role: "Vice President", Name: "TBD"},
		{Role: "Treasurer", Name: "TBD"},
		{Role: "Secretary", Name: "TBD"},
	}
}
