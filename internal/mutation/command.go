package mutation

import "github.com/gabrielgalarza/orgmapper/internal/domain"

// Command is one of the closed set of document mutations. The set is sealed:
// only types in this package implement it.
type Command interface {
	// Kind returns the stable snake_case name used on the wire and in logs.
	Kind() string
	command()
}

// PersonPatch carries the fields of an UpdatePerson. Nil leaves a field
// unchanged. For Email and ReportsTo a pointer to "" clears the value.
type PersonPatch struct {
	Name      *string
	Role      *string
	Level     *domain.Level
	Email     *string
	Tags      *[]domain.Tag
	ReportsTo *string
	TeamID    *string
}

type (
	// AddPerson inserts a person under a freshly generated id. Person.ID is ignored.
	AddPerson struct{ Person domain.Person }

	// UpdatePerson merges Patch into the person; a team change moves membership.
	UpdatePerson struct {
		ID    string
		Patch PersonPatch
	}

	// MovePerson transfers a person between teams.
	MovePerson struct {
		ID       string
		FromTeam string
		ToTeam   string
	}

	// DeletePerson removes a person and clears reportsTo on their reports.
	DeletePerson struct{ ID string }

	// SetReportsTo sets the manager, or clears it when ManagerID is empty.
	SetReportsTo struct {
		ID        string
		ManagerID string
	}

	// ToggleTag adds Tag when absent, removes it when present.
	ToggleTag struct {
		ID  string
		Tag domain.Tag
	}

	RenameTeam struct {
		TeamID string
		Name   string
	}

	// AddTeam inserts a team with empty membership.
	AddTeam struct{ Team domain.Team }

	// DeleteTeam removes an empty team.
	DeleteTeam struct{ TeamID string }

	ToggleTeamProduct struct {
		TeamID  string
		Product domain.Product
	}

	// ToggleOrgProduct flips an organization flag; turning it off revokes it from every team.
	ToggleOrgProduct struct{ Product domain.Product }

	// LoadDocument replaces the whole document.
	LoadDocument struct{ Document domain.Document }

	// ClearDocument replaces the document with a fresh empty one.
	ClearDocument struct{}
)

func (AddPerson) Kind() string         { return "add_person" }
func (UpdatePerson) Kind() string      { return "update_person" }
func (MovePerson) Kind() string        { return "move_person" }
func (DeletePerson) Kind() string      { return "delete_person" }
func (SetReportsTo) Kind() string      { return "set_reports_to" }
func (ToggleTag) Kind() string         { return "toggle_tag" }
func (RenameTeam) Kind() string        { return "rename_team" }
func (AddTeam) Kind() string           { return "add_team" }
func (DeleteTeam) Kind() string        { return "delete_team" }
func (ToggleTeamProduct) Kind() string { return "toggle_team_product" }
func (ToggleOrgProduct) Kind() string  { return "toggle_org_product" }
func (LoadDocument) Kind() string      { return "load_document" }
func (ClearDocument) Kind() string     { return "clear_document" }

func (AddPerson) command()         {}
func (UpdatePerson) command()      {}
func (MovePerson) command()        {}
func (DeletePerson) command()      {}
func (SetReportsTo) command()      {}
func (ToggleTag) command()         {}
func (RenameTeam) command()        {}
func (AddTeam) command()           {}
func (DeleteTeam) command()        {}
func (ToggleTeamProduct) command() {}
func (ToggleOrgProduct) command()  {}
func (LoadDocument) command()      {}
func (ClearDocument) command()     {}
