package domain

// Person is a contact placed on exactly one team.
type Person struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Role      string `json:"role" yaml:"role"`
	Level     Level  `json:"level" yaml:"level"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Tags      []Tag  `json:"tags" yaml:"tags"`
	ReportsTo string `json:"reportsTo,omitempty" yaml:"reportsTo,omitempty"`
	TeamID    string `json:"teamId" yaml:"teamId"`
}

// HasManager reports whether the person reports to someone.
func (p Person) HasManager() bool {
	return p.ReportsTo != ""
}

func (p Person) clone() Person {
	out := p
	out.Tags = append(make([]Tag, 0, len(p.Tags)), p.Tags...)
	return out
}
