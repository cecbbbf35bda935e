package mutation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

// twoTeamDoc has eng (empty) and sales (p1).
func twoTeamDoc() domain.Document {
	return domain.Document{
		Teams: map[string]domain.Team{
			"eng":   {ID: "eng", Name: "Engineering", PersonIDs: []string{}, Products: []domain.Product{}},
			"sales": {ID: "sales", Name: "Sales", PersonIDs: []string{"p1"}, Products: []domain.Product{}},
		},
		People: map[string]domain.Person{
			"p1": {ID: "p1", Name: "Pat", Role: "AE", Level: domain.LevelIC, Tags: []domain.Tag{}, TeamID: "sales"},
		},
		OrgProducts: []domain.Product{},
	}
}

func withPeople(t *testing.T, doc domain.Document, e *Engine, teamID string, n int) (domain.Document, []string) {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var changed bool
		doc, changed = e.Apply(doc, AddPerson{Person: domain.Person{Name: fmt.Sprintf("person %d", i), TeamID: teamID}})
		require.True(t, changed)
		team := doc.Teams[teamID]
		ids = append(ids, team.PersonIDs[len(team.PersonIDs)-1])
	}
	return doc, ids
}

func TestMovePersonScenario(t *testing.T) {
	doc := twoTeamDoc()

	next, changed := Apply(doc, MovePerson{ID: "p1", FromTeam: "sales", ToTeam: "eng"})

	require.True(t, changed)
	require.Equal(t, []string{"p1"}, next.Teams["eng"].PersonIDs)
	require.Empty(t, next.Teams["sales"].PersonIDs)
	require.Equal(t, "eng", next.People["p1"].TeamID)
	// input untouched
	require.Equal(t, twoTeamDoc(), doc)
}

func TestMovePersonSameTeamIsNoop(t *testing.T) {
	doc := twoTeamDoc()

	next, changed := Apply(doc, MovePerson{ID: "p1", FromTeam: "sales", ToTeam: "sales"})

	require.False(t, changed)
	require.Equal(t, doc, next)
}

func TestMovePersonRejectsStaleSource(t *testing.T) {
	doc := twoTeamDoc()

	_, changed := Apply(doc, MovePerson{ID: "p1", FromTeam: "eng", ToTeam: "sales"})
	require.False(t, changed)

	_, changed = Apply(doc, MovePerson{ID: "p1", FromTeam: "sales", ToTeam: "missing"})
	require.False(t, changed)
}

func TestMovePersonRoundTrip(t *testing.T) {
	e := NewEngine(WithIDGenerator(sequentialIDs()))
	doc, ids := withPeople(t, twoTeamDoc(), e, "eng", 3)

	moved, changed := e.Apply(doc, MovePerson{ID: ids[0], FromTeam: "eng", ToTeam: "sales"})
	require.True(t, changed)
	back, changed := e.Apply(moved, MovePerson{ID: ids[0], FromTeam: "sales", ToTeam: "eng"})
	require.True(t, changed)

	// Membership is restored as a set; the returning member is appended.
	require.ElementsMatch(t, doc.Teams["eng"].PersonIDs, back.Teams["eng"].PersonIDs)
	require.Equal(t, []string{ids[1], ids[2], ids[0]}, back.Teams["eng"].PersonIDs)
	require.Equal(t, doc.Teams["sales"].PersonIDs, back.Teams["sales"].PersonIDs)
}

func TestAddPersonScenario(t *testing.T) {
	e := NewEngine(WithIDGenerator(sequentialIDs()))
	doc, _ := withPeople(t, twoTeamDoc(), e, "eng", 2)
	require.Len(t, doc.Teams["eng"].PersonIDs, 2)

	next, changed := e.Apply(doc, AddPerson{Person: domain.Person{
		ID:     "ignored",
		Name:   "Lin",
		Role:   "Staff Engineer",
		Level:  domain.LevelIC,
		Tags:   []domain.Tag{domain.TagChampion, domain.TagChampion},
		TeamID: "eng",
	}})

	require.True(t, changed)
	require.Len(t, next.Teams["eng"].PersonIDs, 3)
	newID := next.Teams["eng"].PersonIDs[2]
	require.Equal(t, "gen-3", newID)
	require.Contains(t, next.People, newID)
	require.NotContains(t, next.People, "ignored")
	require.Equal(t, []domain.Tag{domain.TagChampion}, next.People[newID].Tags)
}

func TestAddPersonPreconditions(t *testing.T) {
	doc := twoTeamDoc()

	cases := map[string]domain.Person{
		"unknown team":    {Name: "x", TeamID: "nope"},
		"invalid level":   {Name: "x", TeamID: "eng", Level: "intern"},
		"invalid tag":     {Name: "x", TeamID: "eng", Tags: []domain.Tag{"vip"}},
		"unknown manager": {Name: "x", TeamID: "eng", ReportsTo: "ghost"},
	}
	for name, person := range cases {
		t.Run(name, func(t *testing.T) {
			next, changed := Apply(doc, AddPerson{Person: person})
			require.False(t, changed)
			require.Equal(t, doc, next)
		})
	}

	next, changed := Apply(doc, AddPerson{Person: domain.Person{Name: "x", TeamID: "eng"}})
	require.True(t, changed)
	id := next.Teams["eng"].PersonIDs[0]
	require.Equal(t, domain.LevelIC, next.People[id].Level)
}

func TestAddPersonGivesUpOnCollidingIDs(t *testing.T) {
	calls := 0
	e := NewEngine(WithIDGenerator(func() string {
		calls++
		return "p1"
	}))
	doc := twoTeamDoc()

	next, changed := e.Apply(doc, AddPerson{Person: domain.Person{Name: "x", TeamID: "eng"}})
	require.False(t, changed)
	require.Equal(t, doc, next)
	require.Equal(t, maxIDAttempts, calls)

	calls = 0
	e = NewEngine(WithIDGenerator(func() string {
		calls++
		if calls < 3 {
			return "p1"
		}
		return "fresh"
	}))
	next, changed = e.Apply(doc, AddPerson{Person: domain.Person{Name: "x", TeamID: "eng"}})
	require.True(t, changed)
	require.Equal(t, []string{"fresh"}, next.Teams["eng"].PersonIDs)
}

func TestUpdatePersonMovesMembership(t *testing.T) {
	doc := twoTeamDoc()
	name := "Patricia"
	team := "eng"
	level := domain.LevelManager

	next, changed := Apply(doc, UpdatePerson{ID: "p1", Patch: PersonPatch{Name: &name, TeamID: &team, Level: &level}})

	require.True(t, changed)
	require.Equal(t, "Patricia", next.People["p1"].Name)
	require.Equal(t, domain.LevelManager, next.People["p1"].Level)
	require.Equal(t, "AE", next.People["p1"].Role)
	require.Equal(t, []string{"p1"}, next.Teams["eng"].PersonIDs)
	require.Empty(t, next.Teams["sales"].PersonIDs)
	require.Empty(t, domain.CheckIntegrity(next))
}

func TestUpdatePersonClearsOptionalFields(t *testing.T) {
	doc := twoTeamDoc()
	doc.People["p2"] = domain.Person{ID: "p2", Level: domain.LevelVP, TeamID: "eng", Tags: []domain.Tag{}}
	eng := doc.Teams["eng"]
	eng.PersonIDs = []string{"p2"}
	doc.Teams["eng"] = eng
	p1 := doc.People["p1"]
	p1.ReportsTo = "p2"
	p1.Email = "pat@example.com"
	doc.People["p1"] = p1

	empty := ""
	next, changed := Apply(doc, UpdatePerson{ID: "p1", Patch: PersonPatch{Email: &empty, ReportsTo: &empty}})

	require.True(t, changed)
	require.Empty(t, next.People["p1"].Email)
	require.False(t, next.People["p1"].HasManager())
}

func TestUpdatePersonPreconditions(t *testing.T) {
	doc := twoTeamDoc()
	bad := domain.Level("boss")
	self := "p1"
	ghost := "ghost"
	team := "missing"

	for name, cmd := range map[string]UpdatePerson{
		"unknown person": {ID: "nobody"},
		"invalid level":  {ID: "p1", Patch: PersonPatch{Level: &bad}},
		"self manager":   {ID: "p1", Patch: PersonPatch{ReportsTo: &self}},
		"ghost manager":  {ID: "p1", Patch: PersonPatch{ReportsTo: &ghost}},
		"unknown team":   {ID: "p1", Patch: PersonPatch{TeamID: &team}},
	} {
		t.Run(name, func(t *testing.T) {
			next, changed := Apply(doc, cmd)
			require.False(t, changed)
			require.Equal(t, doc, next)
		})
	}
}

func TestDeletePersonCascadesReportsTo(t *testing.T) {
	e := NewEngine(WithIDGenerator(sequentialIDs()))
	doc, ids := withPeople(t, twoTeamDoc(), e, "eng", 4)
	boss, r1, r2, other := ids[0], ids[1], ids[2], ids[3]

	doc, _ = e.Apply(doc, SetReportsTo{ID: r1, ManagerID: boss})
	doc, _ = e.Apply(doc, SetReportsTo{ID: r2, ManagerID: boss})
	doc, _ = e.Apply(doc, SetReportsTo{ID: other, ManagerID: "p1"})

	next, changed := e.Apply(doc, DeletePerson{ID: boss})

	require.True(t, changed)
	require.NotContains(t, next.People, boss)
	require.NotContains(t, next.Teams["eng"].PersonIDs, boss)
	require.False(t, next.People[r1].HasManager())
	require.False(t, next.People[r2].HasManager())
	require.Equal(t, "p1", next.People[other].ReportsTo)
	require.Empty(t, domain.CheckIntegrity(next))
}

func TestSetReportsTo(t *testing.T) {
	e := NewEngine(WithIDGenerator(sequentialIDs()))
	doc, ids := withPeople(t, twoTeamDoc(), e, "eng", 2)
	a, b := ids[0], ids[1]

	doc, changed := e.Apply(doc, SetReportsTo{ID: a, ManagerID: b})
	require.True(t, changed)
	require.Equal(t, b, doc.People[a].ReportsTo)

	// Cycles longer than one are tolerated.
	doc, changed = e.Apply(doc, SetReportsTo{ID: b, ManagerID: a})
	require.True(t, changed)
	require.Equal(t, a, doc.People[b].ReportsTo)

	_, changed = e.Apply(doc, SetReportsTo{ID: a, ManagerID: a})
	require.False(t, changed)
	_, changed = e.Apply(doc, SetReportsTo{ID: a, ManagerID: "ghost"})
	require.False(t, changed)

	doc, changed = e.Apply(doc, SetReportsTo{ID: a})
	require.True(t, changed)
	require.False(t, doc.People[a].HasManager())
}

func TestToggleTagIsSelfInverse(t *testing.T) {
	doc := twoTeamDoc()
	p1 := doc.People["p1"]
	p1.Tags = []domain.Tag{domain.TagInfluencer}
	doc.People["p1"] = p1

	for _, tag := range domain.Tags {
		once, changed := Apply(doc, ToggleTag{ID: "p1", Tag: tag})
		require.True(t, changed)
		twice, _ := Apply(once, ToggleTag{ID: "p1", Tag: tag})
		require.ElementsMatch(t, doc.People["p1"].Tags, twice.People["p1"].Tags, tag)
	}

	_, changed := Apply(doc, ToggleTag{ID: "p1", Tag: "vip"})
	require.False(t, changed)
}

func TestTeamLifecycle(t *testing.T) {
	doc := twoTeamDoc()

	next, changed := Apply(doc, AddTeam{Team: domain.Team{ID: "ops", Name: "Ops", Color: "#000", PersonIDs: []string{"p1"}}})
	require.True(t, changed)
	require.Empty(t, next.Teams["ops"].PersonIDs)

	_, changed = Apply(next, AddTeam{Team: domain.Team{ID: "ops", Name: "Again"}})
	require.False(t, changed)

	next, changed = Apply(next, RenameTeam{TeamID: "ops", Name: "Operations"})
	require.True(t, changed)
	require.Equal(t, "Operations", next.Teams["ops"].Name)

	next, changed = Apply(next, DeleteTeam{TeamID: "ops"})
	require.True(t, changed)
	require.NotContains(t, next.Teams, "ops")
}

func TestDeleteTeamWithMembersIsNoop(t *testing.T) {
	doc := twoTeamDoc()

	next, changed := Apply(doc, DeleteTeam{TeamID: "sales"})

	require.False(t, changed)
	require.Equal(t, doc, next)
}

func TestToggleOrgProductCascades(t *testing.T) {
	doc := twoTeamDoc()
	doc.OrgProducts = []domain.Product{domain.ProductAnalytics, domain.ProductExperiment}
	eng := doc.Teams["eng"]
	eng.Products = []domain.Product{domain.ProductAnalytics, domain.ProductExperiment}
	doc.Teams["eng"] = eng

	next, changed := Apply(doc, ToggleOrgProduct{Product: domain.ProductAnalytics})

	require.True(t, changed)
	require.Equal(t, []domain.Product{domain.ProductExperiment}, next.OrgProducts)
	require.Equal(t, []domain.Product{domain.ProductExperiment}, next.Teams["eng"].Products)

	next, changed = Apply(next, ToggleOrgProduct{Product: domain.ProductAnalytics})
	require.True(t, changed)
	require.Contains(t, next.OrgProducts, domain.ProductAnalytics)
	require.NotContains(t, next.Teams["eng"].Products, domain.ProductAnalytics)
}

func TestToggleTeamProductRequiresOrgFlag(t *testing.T) {
	doc := twoTeamDoc()

	_, changed := Apply(doc, ToggleTeamProduct{TeamID: "eng", Product: domain.ProductSessionReplay})
	require.False(t, changed)

	doc, _ = Apply(doc, ToggleOrgProduct{Product: domain.ProductSessionReplay})
	doc, changed = Apply(doc, ToggleTeamProduct{TeamID: "eng", Product: domain.ProductSessionReplay})
	require.True(t, changed)
	require.Equal(t, []domain.Product{domain.ProductSessionReplay}, doc.Teams["eng"].Products)

	// A held flag can always be removed, even if the org flag was lost out of band.
	doc.OrgProducts = []domain.Product{}
	doc, changed = Apply(doc, ToggleTeamProduct{TeamID: "eng", Product: domain.ProductSessionReplay})
	require.True(t, changed)
	require.Empty(t, doc.Teams["eng"].Products)
}

func TestLoadAndClearDocument(t *testing.T) {
	doc := twoTeamDoc()

	loaded, changed := Apply(domain.NewDocument(), LoadDocument{Document: doc})
	require.True(t, changed)
	require.Equal(t, doc, loaded)

	cleared, changed := Apply(doc, ClearDocument{})
	require.True(t, changed)
	require.Equal(t, domain.NewDocument(), cleared)
}

func TestMembershipConsistencyUnderRandomCommands(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := NewEngine(WithIDGenerator(sequentialIDs()))
	doc := domain.NewDocument()

	pick := func(ids []string) string {
		if len(ids) == 0 {
			return "none"
		}
		return ids[rng.Intn(len(ids))]
	}

	for step := 0; step < 2000; step++ {
		teamIDs := make([]string, 0, len(doc.Teams))
		for id := range doc.Teams {
			teamIDs = append(teamIDs, id)
		}
		personIDs := make([]string, 0, len(doc.People))
		for id := range doc.People {
			personIDs = append(personIDs, id)
		}
		person := pick(personIDs)
		from := doc.People[person].TeamID

		var cmd Command
		switch rng.Intn(11) {
		case 0, 1:
			cmd = AddPerson{Person: domain.Person{Name: "n", TeamID: pick(teamIDs), ReportsTo: pick(append(personIDs, ""))}}
		case 2:
			to := pick(teamIDs)
			cmd = UpdatePerson{ID: person, Patch: PersonPatch{TeamID: &to}}
		case 3, 4:
			cmd = MovePerson{ID: person, FromTeam: from, ToTeam: pick(teamIDs)}
		case 5:
			cmd = DeletePerson{ID: person}
		case 6:
			cmd = SetReportsTo{ID: person, ManagerID: pick(personIDs)}
		case 7:
			cmd = ToggleTag{ID: person, Tag: domain.Tags[rng.Intn(len(domain.Tags))]}
		case 8:
			cmd = AddTeam{Team: domain.Team{ID: fmt.Sprintf("team-%d", step), Products: domain.Products}}
		case 9:
			cmd = DeleteTeam{TeamID: pick(teamIDs)}
		case 10:
			if rng.Intn(2) == 0 {
				cmd = ToggleOrgProduct{Product: domain.Products[rng.Intn(len(domain.Products))]}
			} else {
				cmd = ToggleTeamProduct{TeamID: pick(teamIDs), Product: domain.Products[rng.Intn(len(domain.Products))]}
			}
		}

		doc, _ = e.Apply(doc, cmd)
		require.Empty(t, domain.CheckIntegrity(doc), "step %d after %s", step, cmd.Kind())
	}
}
