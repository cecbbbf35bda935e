package domain

// Level enumerates seniority, ordered from most to least senior.
type Level string

const (
	LevelExecutive Level = "executive"
	LevelVP        Level = "vp"
	LevelDirector  Level = "director"
	LevelManager   Level = "manager"
	LevelIC        Level = "ic"
)

// Levels lists every level in rank order.
var Levels = []Level{LevelExecutive, LevelVP, LevelDirector, LevelManager, LevelIC}

// Rank returns the display position of the level (executive is 0).
// Unknown levels sort last.
func (l Level) Rank() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return len(Levels)
}

// Valid reports whether l is part of the vocabulary.
func (l Level) Valid() bool {
	return l.Rank() < len(Levels)
}

// Tag labels a person's relationship to the account.
type Tag string

const (
	TagPowerUser     Tag = "power-user"
	TagChampion      Tag = "champion"
	TagDecisionMaker Tag = "decision-maker"
	TagInfluencer    Tag = "influencer"
	TagBlocker       Tag = "blocker"
)

// Tags lists the tag vocabulary.
var Tags = []Tag{TagPowerUser, TagChampion, TagDecisionMaker, TagInfluencer, TagBlocker}

// Valid reports whether t is part of the vocabulary.
func (t Tag) Valid() bool {
	for _, tag := range Tags {
		if tag == t {
			return true
		}
	}
	return false
}

// Product is an onboarding flag for an external product line.
type Product string

const (
	ProductAnalytics     Product = "analytics"
	ProductExperiment    Product = "experiment"
	ProductSessionReplay Product = "session-replay"
	ProductGuidesSurveys Product = "guides-surveys"
)

// Products lists the product vocabulary.
var Products = []Product{ProductAnalytics, ProductExperiment, ProductSessionReplay, ProductGuidesSurveys}

// Valid reports whether p is part of the vocabulary.
func (p Product) Valid() bool {
	for _, product := range Products {
		if product == p {
			return true
		}
	}
	return false
}

// ContainsTag reports whether tags holds t.
func ContainsTag(tags []Tag, t Tag) bool {
	for _, tag := range tags {
		if tag == t {
			return true
		}
	}
	return false
}

// ContainsProduct reports whether products holds p.
func ContainsProduct(products []Product, p Product) bool {
	for _, product := range products {
		if product == p {
			return true
		}
	}
	return false
}
