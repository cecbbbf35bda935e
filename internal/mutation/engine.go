package mutation

import (
	"github.com/google/uuid"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

// Engine applies commands to documents. It holds no document state; the
// only dependency is the id source used by AddPerson.
type Engine struct {
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the id source used for new people.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine constructs an engine that assigns UUIDs to new people.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Apply runs cmd against doc with the default engine.
func Apply(doc domain.Document, cmd Command) (domain.Document, bool) {
	return defaultEngine.Apply(doc, cmd)
}

// Apply returns the document that results from cmd and whether anything
// changed. doc itself is never modified. A command whose preconditions do not
// hold returns doc unchanged with false.
func (e *Engine) Apply(doc domain.Document, cmd Command) (domain.Document, bool) {
	switch c := cmd.(type) {
	case AddPerson:
		return e.addPerson(doc, c)
	case UpdatePerson:
		return updatePerson(doc, c)
	case MovePerson:
		return movePerson(doc, c)
	case DeletePerson:
		return deletePerson(doc, c)
	case SetReportsTo:
		return setReportsTo(doc, c)
	case ToggleTag:
		return toggleTag(doc, c)
	case RenameTeam:
		return renameTeam(doc, c)
	case AddTeam:
		return addTeam(doc, c)
	case DeleteTeam:
		return deleteTeam(doc, c)
	case ToggleTeamProduct:
		return toggleTeamProduct(doc, c)
	case ToggleOrgProduct:
		return toggleOrgProduct(doc, c)
	case LoadDocument:
		return c.Document.Clone().Normalize(), true
	case ClearDocument:
		return domain.NewDocument(), true
	default:
		return doc, false
	}
}

// maxIDAttempts bounds retries against a generator that keeps returning
// ids already in the document.
const maxIDAttempts = 16

func (e *Engine) freshID(doc domain.Document) (string, bool) {
	for i := 0; i < maxIDAttempts; i++ {
		id := e.newID()
		if _, taken := doc.People[id]; !taken && id != "" {
			return id, true
		}
	}
	return "", false
}

func (e *Engine) addPerson(doc domain.Document, c AddPerson) (domain.Document, bool) {
	person := c.Person
	if _, ok := doc.Teams[person.TeamID]; !ok {
		return doc, false
	}
	if person.Level == "" {
		person.Level = domain.LevelIC
	}
	if !person.Level.Valid() {
		return doc, false
	}
	tags, ok := normalizeTags(person.Tags)
	if !ok {
		return doc, false
	}
	if person.HasManager() {
		if _, exists := doc.People[person.ReportsTo]; !exists {
			return doc, false
		}
	}

	id, ok := e.freshID(doc)
	if !ok {
		return doc, false
	}

	next := doc.Clone()
	person.ID = id
	person.Tags = tags
	next.People[id] = person
	team := next.Teams[person.TeamID]
	team.PersonIDs = append(team.PersonIDs, id)
	next.Teams[person.TeamID] = team
	return next, true
}

func updatePerson(doc domain.Document, c UpdatePerson) (domain.Document, bool) {
	person, ok := doc.People[c.ID]
	if !ok {
		return doc, false
	}
	patch := c.Patch

	if patch.Level != nil && !patch.Level.Valid() {
		return doc, false
	}
	var tags []domain.Tag
	if patch.Tags != nil {
		if tags, ok = normalizeTags(*patch.Tags); !ok {
			return doc, false
		}
	}
	if patch.ReportsTo != nil && *patch.ReportsTo != "" {
		if *patch.ReportsTo == c.ID {
			return doc, false
		}
		if _, exists := doc.People[*patch.ReportsTo]; !exists {
			return doc, false
		}
	}
	if patch.TeamID != nil {
		if _, exists := doc.Teams[*patch.TeamID]; !exists {
			return doc, false
		}
	}

	next := doc.Clone()
	updated := next.People[c.ID]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Role != nil {
		updated.Role = *patch.Role
	}
	if patch.Level != nil {
		updated.Level = *patch.Level
	}
	if patch.Email != nil {
		updated.Email = *patch.Email
	}
	if patch.Tags != nil {
		updated.Tags = tags
	}
	if patch.ReportsTo != nil {
		updated.ReportsTo = *patch.ReportsTo
	}
	if patch.TeamID != nil && *patch.TeamID != person.TeamID {
		transferMembership(next, c.ID, person.TeamID, *patch.TeamID)
		updated.TeamID = *patch.TeamID
	}
	next.People[c.ID] = updated
	return next, true
}

func movePerson(doc domain.Document, c MovePerson) (domain.Document, bool) {
	if c.FromTeam == c.ToTeam {
		return doc, false
	}
	person, ok := doc.People[c.ID]
	if !ok || person.TeamID != c.FromTeam {
		return doc, false
	}
	if _, ok := doc.Teams[c.ToTeam]; !ok {
		return doc, false
	}

	next := doc.Clone()
	transferMembership(next, c.ID, c.FromTeam, c.ToTeam)
	person = next.People[c.ID]
	person.TeamID = c.ToTeam
	next.People[c.ID] = person
	return next, true
}

func deletePerson(doc domain.Document, c DeletePerson) (domain.Document, bool) {
	person, ok := doc.People[c.ID]
	if !ok {
		return doc, false
	}

	next := doc.Clone()
	delete(next.People, c.ID)
	if team, ok := next.Teams[person.TeamID]; ok {
		team.PersonIDs = removeID(team.PersonIDs, c.ID)
		next.Teams[person.TeamID] = team
	}
	for id, other := range next.People {
		if other.ReportsTo == c.ID {
			other.ReportsTo = ""
			next.People[id] = other
		}
	}
	return next, true
}

func setReportsTo(doc domain.Document, c SetReportsTo) (domain.Document, bool) {
	person, ok := doc.People[c.ID]
	if !ok {
		return doc, false
	}
	if c.ManagerID != "" {
		if c.ManagerID == c.ID {
			return doc, false
		}
		if _, exists := doc.People[c.ManagerID]; !exists {
			return doc, false
		}
	}
	if person.ReportsTo == c.ManagerID {
		return doc, false
	}

	next := doc.Clone()
	person = next.People[c.ID]
	person.ReportsTo = c.ManagerID
	next.People[c.ID] = person
	return next, true
}

func toggleTag(doc domain.Document, c ToggleTag) (domain.Document, bool) {
	if !c.Tag.Valid() {
		return doc, false
	}
	if _, ok := doc.People[c.ID]; !ok {
		return doc, false
	}

	next := doc.Clone()
	person := next.People[c.ID]
	if domain.ContainsTag(person.Tags, c.Tag) {
		person.Tags = removeTag(person.Tags, c.Tag)
	} else {
		person.Tags = append(person.Tags, c.Tag)
	}
	next.People[c.ID] = person
	return next, true
}

func renameTeam(doc domain.Document, c RenameTeam) (domain.Document, bool) {
	team, ok := doc.Teams[c.TeamID]
	if !ok || team.Name == c.Name {
		return doc, false
	}

	next := doc.Clone()
	team = next.Teams[c.TeamID]
	team.Name = c.Name
	next.Teams[c.TeamID] = team
	return next, true
}

func addTeam(doc domain.Document, c AddTeam) (domain.Document, bool) {
	if c.Team.ID == "" {
		return doc, false
	}
	if _, exists := doc.Teams[c.Team.ID]; exists {
		return doc, false
	}

	products := make([]domain.Product, 0, len(c.Team.Products))
	for _, product := range c.Team.Products {
		if doc.HasOrgProduct(product) && !domain.ContainsProduct(products, product) {
			products = append(products, product)
		}
	}

	next := doc.Clone()
	next.Teams[c.Team.ID] = domain.Team{
		ID:        c.Team.ID,
		Name:      c.Team.Name,
		Color:     c.Team.Color,
		PersonIDs: []string{},
		Products:  products,
	}
	return next, true
}

func deleteTeam(doc domain.Document, c DeleteTeam) (domain.Document, bool) {
	team, ok := doc.Teams[c.TeamID]
	if !ok || len(team.PersonIDs) > 0 {
		return doc, false
	}

	next := doc.Clone()
	delete(next.Teams, c.TeamID)
	return next, true
}

func toggleTeamProduct(doc domain.Document, c ToggleTeamProduct) (domain.Document, bool) {
	if !c.Product.Valid() {
		return doc, false
	}
	team, ok := doc.Teams[c.TeamID]
	if !ok {
		return doc, false
	}
	removing := domain.ContainsProduct(team.Products, c.Product)
	if !removing && !doc.HasOrgProduct(c.Product) {
		return doc, false
	}

	next := doc.Clone()
	team = next.Teams[c.TeamID]
	if removing {
		team.Products = removeProduct(team.Products, c.Product)
	} else {
		team.Products = append(team.Products, c.Product)
	}
	next.Teams[c.TeamID] = team
	return next, true
}

func toggleOrgProduct(doc domain.Document, c ToggleOrgProduct) (domain.Document, bool) {
	if !c.Product.Valid() {
		return doc, false
	}

	next := doc.Clone()
	if !next.HasOrgProduct(c.Product) {
		next.OrgProducts = append(next.OrgProducts, c.Product)
		return next, true
	}

	next.OrgProducts = removeProduct(next.OrgProducts, c.Product)
	for id, team := range next.Teams {
		if domain.ContainsProduct(team.Products, c.Product) {
			team.Products = removeProduct(team.Products, c.Product)
			next.Teams[id] = team
		}
	}
	return next, true
}

// transferMembership moves id from one team's list to the end of another's.
// doc must be a private clone.
func transferMembership(doc domain.Document, id, from, to string) {
	if team, ok := doc.Teams[from]; ok {
		team.PersonIDs = removeID(team.PersonIDs, id)
		doc.Teams[from] = team
	}
	team := doc.Teams[to]
	if !team.HasMember(id) {
		team.PersonIDs = append(team.PersonIDs, id)
	}
	doc.Teams[to] = team
}

func normalizeTags(tags []domain.Tag) ([]domain.Tag, bool) {
	out := make([]domain.Tag, 0, len(tags))
	for _, tag := range tags {
		if !tag.Valid() {
			return nil, false
		}
		if !domain.ContainsTag(out, tag) {
			out = append(out, tag)
		}
	}
	return out, true
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func removeTag(tags []domain.Tag, tag domain.Tag) []domain.Tag {
	out := make([]domain.Tag, 0, len(tags))
	for _, existing := range tags {
		if existing != tag {
			out = append(out, existing)
		}
	}
	return out
}

func removeProduct(products []domain.Product, product domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, existing := range products {
		if existing != product {
			out = append(out, existing)
		}
	}
	return out
}
