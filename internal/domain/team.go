package domain

// Team is a named group of people with product onboarding flags.
// PersonIDs is kept in lockstep with the TeamID of each member.
type Team struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Color     string    `json:"color" yaml:"color"`
	PersonIDs []string  `json:"personIds" yaml:"personIds"`
	Products  []Product `json:"products" yaml:"products"`
}

// HasMember reports whether id is listed in the team's membership.
func (t Team) HasMember(id string) bool {
	for _, pid := range t.PersonIDs {
		if pid == id {
			return true
		}
	}
	return false
}

func (t Team) clone() Team {
	out := t
	out.PersonIDs = append(make([]string, 0, len(t.PersonIDs)), t.PersonIDs...)
	out.Products = append(make([]Product, 0, len(t.Products)), t.Products...)
	return out
}

// DefaultTeams are present in every freshly created document.
var DefaultTeams = []Team{
	{ID: "engineering", Name: "Engineering", Color: "#3b82f6"},
	{ID: "product", Name: "Product", Color: "#8b5cf6"},
	{ID: "design", Name: "Design", Color: "#ec4899"},
	{ID: "sales", Name: "Sales", Color: "#f59e0b"},
	{ID: "marketing", Name: "Marketing", Color: "#10b981"},
	{ID: "customer-success", Name: "Customer Success", Color: "#06b6d4"},
}
