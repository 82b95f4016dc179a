package model

// RiskLevel classifies how risky an intent's operation is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// AuthLevel is the authentication strength attached to a user or required by
// an intent. Ordering: none < basic < full < challenge.
type AuthLevel string

const (
	AuthNone      AuthLevel = "none"
	AuthBasic     AuthLevel = "basic"
	AuthFull      AuthLevel = "full"
	AuthChallenge AuthLevel = "challenge"
)

var authRank = map[AuthLevel]int{
	AuthNone:      0,
	AuthBasic:     1,
	AuthFull:      2,
	AuthChallenge: 3,
}

// Satisfies reports whether a meets the required level.
func (a AuthLevel) Satisfies(required AuthLevel) bool {
	return authRank[a] >= authRank[required]
}

// IntentUnknown is the id returned when no intent matches.
const IntentUnknown = "unknown"

// Intent is one entry of the declarative intent catalog. Intents are loaded
// once at startup and never mutated.
type Intent struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Category               string       `json:"category"`
	Subcategory            string       `json:"subcategory"`
	ConfidenceThreshold    float64      `json:"confidence_threshold"`
	RiskLevel              RiskLevel    `json:"risk_level"`
	AuthRequired           AuthLevel    `json:"auth_required"`
	RequiredEntities       []EntityType `json:"required_entities"`
	OptionalEntities       []EntityType `json:"optional_entities"`
	ExampleUtterances      []string     `json:"example_utterances"`
	Keywords               []string     `json:"keywords"`
	Patterns               []string     `json:"patterns"`
	Preconditions          []string     `json:"preconditions"`
	EnrichmentRequirements []string     `json:"enrichment_requirements"`
	TimeoutMs              int          `json:"timeout_ms"`
}

// RequiresEntity reports whether t is in the intent's required list.
func (i *Intent) RequiresEntity(t EntityType) bool {
	for _, r := range i.RequiredEntities {
		if r == t {
			return true
		}
	}
	return false
}

// DeclaresEntity reports whether t is in the required or optional list.
func (i *Intent) DeclaresEntity(t EntityType) bool {
	if i.RequiresEntity(t) {
		return true
	}
	for _, o := range i.OptionalEntities {
		if o == t {
			return true
		}
	}
	return false
}
