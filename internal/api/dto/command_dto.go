package dto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/mutation"
)

// ErrUnknownCommand reports a command type outside the supported set.
var ErrUnknownCommand = errors.New("unknown command type")

// PersonInput describes a person to add.
type PersonInput struct {
	Name      string       `json:"name"`
	Role      string       `json:"role"`
	Level     domain.Level `json:"level"`
	Email     string       `json:"email"`
	Tags      []domain.Tag `json:"tags"`
	ReportsTo string       `json:"reportsTo"`
	TeamID    string       `json:"teamId"`
}

// PersonPatchInput carries optional person fields. Omitted fields are left
// unchanged; an empty email or reportsTo clears it.
type PersonPatchInput struct {
	Name      *string       `json:"name"`
	Role      *string       `json:"role"`
	Level     *domain.Level `json:"level"`
	Email     *string       `json:"email"`
	Tags      *[]domain.Tag `json:"tags"`
	ReportsTo *string       `json:"reportsTo"`
	TeamID    *string       `json:"teamId"`
}

// TeamInput describes a team to add.
type TeamInput struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Color    string           `json:"color"`
	Products []domain.Product `json:"products"`
}

// CommandRequest is the wire form of a document command. Type selects the
// command; only the fields that command uses are read.
type CommandRequest struct {
	Type      string            `json:"type"`
	PersonID  string            `json:"personId"`
	TeamID    string            `json:"teamId"`
	FromTeam  string            `json:"fromTeam"`
	ToTeam    string            `json:"toTeam"`
	ManagerID string            `json:"managerId"`
	Tag       domain.Tag        `json:"tag"`
	Product   domain.Product    `json:"product"`
	Name      string            `json:"name"`
	Person    *PersonInput      `json:"person"`
	Patch     *PersonPatchInput `json:"patch"`
	Team      *TeamInput        `json:"team"`
	Document  json.RawMessage   `json:"document"`
}

// ToCommand converts the request into a mutation command.
func (r CommandRequest) ToCommand() (mutation.Command, error) {
	switch r.Type {
	case "add_person":
		if r.Person == nil {
			return nil, missing(r.Type, "person")
		}
		return mutation.AddPerson{Person: domain.Person{
			Name:      r.Person.Name,
			Role:      r.Person.Role,
			Level:     r.Person.Level,
			Email:     r.Person.Email,
			Tags:      r.Person.Tags,
			ReportsTo: r.Person.ReportsTo,
			TeamID:    r.Person.TeamID,
		}}, nil
	case "update_person":
		if r.Patch == nil {
			return nil, missing(r.Type, "patch")
		}
		return mutation.UpdatePerson{ID: r.PersonID, Patch: mutation.PersonPatch{
			Name:      r.Patch.Name,
			Role:      r.Patch.Role,
			Level:     r.Patch.Level,
			Email:     r.Patch.Email,
			Tags:      r.Patch.Tags,
			ReportsTo: r.Patch.ReportsTo,
			TeamID:    r.Patch.TeamID,
		}}, nil
	case "move_person":
		return mutation.MovePerson{ID: r.PersonID, FromTeam: r.FromTeam, ToTeam: r.ToTeam}, nil
	case "delete_person":
		return mutation.DeletePerson{ID: r.PersonID}, nil
	case "set_reports_to":
		return mutation.SetReportsTo{ID: r.PersonID, ManagerID: r.ManagerID}, nil
	case "toggle_tag":
		return mutation.ToggleTag{ID: r.PersonID, Tag: r.Tag}, nil
	case "rename_team":
		return mutation.RenameTeam{TeamID: r.TeamID, Name: r.Name}, nil
	case "add_team":
		if r.Team == nil {
			return nil, missing(r.Type, "team")
		}
		return mutation.AddTeam{Team: domain.Team{
			ID:       r.Team.ID,
			Name:     r.Team.Name,
			Color:    r.Team.Color,
			Products: r.Team.Products,
		}}, nil
	case "delete_team":
		return mutation.DeleteTeam{TeamID: r.TeamID}, nil
	case "toggle_team_product":
		return mutation.ToggleTeamProduct{TeamID: r.TeamID, Product: r.Product}, nil
	case "toggle_org_product":
		return mutation.ToggleOrgProduct{Product: r.Product}, nil
	case "load_document":
		if len(r.Document) == 0 {
			return nil, missing(r.Type, "document")
		}
		doc, err := codec.UnmarshalDocument(r.Document)
		if err != nil {
			return nil, err
		}
		return mutation.LoadDocument{Document: doc}, nil
	case "clear_document":
		return mutation.ClearDocument{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, r.Type)
	}
}

func missing(kind, field string) error {
	return fmt.Errorf("%s requires %s", kind, field)
}

// CommandResponse reports the outcome of a command.
type CommandResponse struct {
	Changed  bool            `json:"changed"`
	Document domain.Document `json:"document"`
}
