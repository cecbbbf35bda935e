package domain

import (
	"fmt"
	"sort"
)

// ViolationKind classifies a referential-integrity problem.
type ViolationKind string

const (
	ViolationMissingTeam       ViolationKind = "missing_team"
	ViolationMissingManager    ViolationKind = "missing_manager"
	ViolationMembership        ViolationKind = "membership_mismatch"
	ViolationUnknownMember     ViolationKind = "unknown_member"
	ViolationDuplicateTag      ViolationKind = "duplicate_tag"
	ViolationProductNotEnabled ViolationKind = "product_not_enabled"
)

// Violation describes one integrity problem found in a document.
type Violation struct {
	Kind     ViolationKind
	EntityID string
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s(%s): %s", v.Kind, v.EntityID, v.Detail)
}

// CheckIntegrity reports every place where d breaks the team/person
// lockstep or references something that does not exist. Cyclic reporting
// chains are not violations.
func CheckIntegrity(d Document) []Violation {
	var out []Violation

	personIDs := make([]string, 0, len(d.People))
	for id := range d.People {
		personIDs = append(personIDs, id)
	}
	sort.Strings(personIDs)

	for _, id := range personIDs {
		person := d.People[id]
		team, ok := d.Teams[person.TeamID]
		if !ok {
			out = append(out, Violation{Kind: ViolationMissingTeam, EntityID: id, Detail: "team " + person.TeamID})
		} else if !team.HasMember(id) {
			out = append(out, Violation{Kind: ViolationMembership, EntityID: id, Detail: "not listed by team " + team.ID})
		}
		if person.HasManager() {
			if _, ok := d.People[person.ReportsTo]; !ok {
				out = append(out, Violation{Kind: ViolationMissingManager, EntityID: id, Detail: "manager " + person.ReportsTo})
			}
		}
		seen := make(map[Tag]struct{}, len(person.Tags))
		for _, tag := range person.Tags {
			if _, dup := seen[tag]; dup {
				out = append(out, Violation{Kind: ViolationDuplicateTag, EntityID: id, Detail: string(tag)})
			}
			seen[tag] = struct{}{}
		}
	}

	teamIDs := make([]string, 0, len(d.Teams))
	for id := range d.Teams {
		teamIDs = append(teamIDs, id)
	}
	sort.Strings(teamIDs)

	for _, id := range teamIDs {
		team := d.Teams[id]
		listed := make(map[string]struct{}, len(team.PersonIDs))
		for _, pid := range team.PersonIDs {
			person, ok := d.People[pid]
			if !ok {
				out = append(out, Violation{Kind: ViolationUnknownMember, EntityID: id, Detail: "person " + pid})
				continue
			}
			if person.TeamID != id {
				out = append(out, Violation{Kind: ViolationMembership, EntityID: id, Detail: "lists " + pid + " of team " + person.TeamID})
			}
			if _, dup := listed[pid]; dup {
				out = append(out, Violation{Kind: ViolationMembership, EntityID: id, Detail: "lists " + pid + " twice"})
			}
			listed[pid] = struct{}{}
		}
		for _, product := range team.Products {
			if !d.HasOrgProduct(product) {
				out = append(out, Violation{Kind: ViolationProductNotEnabled, EntityID: id, Detail: string(product)})
			}
		}
	}

	return out
}
