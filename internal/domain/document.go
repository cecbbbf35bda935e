package domain

// Document is the full state of one organization.
type Document struct {
	Teams       map[string]Team   `json:"teams" yaml:"teams"`
	People      map[string]Person `json:"people" yaml:"people"`
	OrgProducts []Product         `json:"orgProducts" yaml:"orgProducts"`
}

// NewDocument returns an empty document holding the default teams.
func NewDocument() Document {
	doc := Document{
		Teams:       make(map[string]Team, len(DefaultTeams)),
		People:      make(map[string]Person),
		OrgProducts: []Product{},
	}
	for _, team := range DefaultTeams {
		doc.Teams[team.ID] = team.clone()
	}
	return doc
}

// Clone returns a deep copy that shares no slices or maps with d.
func (d Document) Clone() Document {
	out := Document{
		Teams:       make(map[string]Team, len(d.Teams)),
		People:      make(map[string]Person, len(d.People)),
		OrgProducts: append(make([]Product, 0, len(d.OrgProducts)), d.OrgProducts...),
	}
	for id, team := range d.Teams {
		out.Teams[id] = team.clone()
	}
	for id, person := range d.People {
		out.People[id] = person.clone()
	}
	return out
}

// Normalize replaces nil collections with empty ones so documents decoded
// from different sources compare equal. The maps of d are updated in place.
func (d Document) Normalize() Document {
	if d.Teams == nil {
		d.Teams = make(map[string]Team)
	}
	if d.People == nil {
		d.People = make(map[string]Person)
	}
	if d.OrgProducts == nil {
		d.OrgProducts = []Product{}
	}
	for id, team := range d.Teams {
		if team.PersonIDs == nil {
			team.PersonIDs = []string{}
		}
		if team.Products == nil {
			team.Products = []Product{}
		}
		d.Teams[id] = team
	}
	for id, person := range d.People {
		if person.Tags == nil {
			person.Tags = []Tag{}
		}
		d.People[id] = person
	}
	return d
}

// HasOrgProduct reports whether the organization has p enabled.
func (d Document) HasOrgProduct(p Product) bool {
	return ContainsProduct(d.OrgProducts, p)
}
