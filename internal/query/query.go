// Package query derives read-only views from a document. Every function is
// pure; callers recompute on demand instead of caching.
package query

import (
	"sort"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

// Person looks up a person by id.
func Person(doc domain.Document, id string) (domain.Person, bool) {
	person, ok := doc.People[id]
	return person, ok
}

// TeamMembers returns the people on a team in the team's stored order.
// Ids that do not resolve to a person are skipped.
func TeamMembers(doc domain.Document, teamID string) []domain.Person {
	team, ok := doc.Teams[teamID]
	if !ok {
		return nil
	}
	out := make([]domain.Person, 0, len(team.PersonIDs))
	for _, id := range team.PersonIDs {
		if person, ok := doc.People[id]; ok {
			out = append(out, person)
		}
	}
	return out
}

// DirectReports returns everyone whose manager is id, most senior first.
// Only one level is inspected, so the result is well defined even when the
// reporting graph has cycles.
func DirectReports(doc domain.Document, id string) []domain.Person {
	var out []domain.Person
	for _, person := range doc.People {
		if person.ReportsTo == id && id != "" {
			out = append(out, person)
		}
	}
	sortPeople(out)
	return out
}

// Teams returns every team ordered by name, then id.
func Teams(doc domain.Document) []domain.Team {
	out := make([]domain.Team, 0, len(doc.Teams))
	for _, team := range doc.Teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PeopleByLevel returns everyone ordered by level rank, then name.
func PeopleByLevel(doc domain.Document) []domain.Person {
	out := make([]domain.Person, 0, len(doc.People))
	for _, person := range doc.People {
		out = append(out, person)
	}
	sortPeople(out)
	return out
}

// ManagementChain walks reportsTo upward from id and returns the managers
// nearest first. The walk stops at a missing manager or when it would revisit
// someone already on the chain.
func ManagementChain(doc domain.Document, id string) []domain.Person {
	person, ok := doc.People[id]
	if !ok {
		return nil
	}
	visited := map[string]struct{}{id: {}}
	var chain []domain.Person
	for person.HasManager() {
		if _, seen := visited[person.ReportsTo]; seen {
			break
		}
		manager, ok := doc.People[person.ReportsTo]
		if !ok {
			break
		}
		visited[person.ReportsTo] = struct{}{}
		chain = append(chain, manager)
		person = manager
	}
	return chain
}

func sortPeople(people []domain.Person) {
	sort.Slice(people, func(i, j int) bool {
		ri, rj := people[i].Level.Rank(), people[j].Level.Rank()
		if ri != rj {
			return ri < rj
		}
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
}
