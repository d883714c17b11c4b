package development

// CatalogEntry is one authored question. Entries are read-only at runtime;
// inactive entries stay in the catalog so historical responses still resolve.
type CatalogEntry struct {
	ID             string   `yaml:"id" json:"id"`
	ModuleID       string   `yaml:"module_id,omitempty" json:"module_id,omitempty"`
	AgeMinMonths   int      `yaml:"age_min_months" json:"age_min_months"`
	AgeMaxMonths   int      `yaml:"age_max_months" json:"age_max_months"`
	Week           *int     `yaml:"week,omitempty" json:"week,omitempty"`
	OrderIndex     int      `yaml:"order_index" json:"order_index"`
	Domain         string   `yaml:"domain" json:"domain"`
	Prompt         string   `yaml:"prompt" json:"prompt"`
	Choices        []string `yaml:"choices,omitempty" json:"choices,omitempty"`
	FeedbackText   string   `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	ChoiceFeedback []string `yaml:"choice_feedback,omitempty" json:"choice_feedback,omitempty"`
	IsActive       bool     `yaml:"is_active" json:"is_active"`
}

// WeekOrDefault treats entries without a week as belonging to week 1.
func (e CatalogEntry) WeekOrDefault() int {
	if e.Week == nil {
		return 1
	}
	return *e.Week
}

// MatchesAge reports inclusive-both-ends membership in the entry's age band.
func (e CatalogEntry) MatchesAge(ageInMonths int) bool {
	return e.AgeMinMonths <= ageInMonths && ageInMonths <= e.AgeMaxMonths
}

// DomainOrDefault falls back to DefaultDomain for untagged entries.
func (e CatalogEntry) DomainOrDefault() string {
	if e.Domain == "" {
		return DefaultDomain
	}
	return e.Domain
}

// WeekMeta carries the optional title/description shown before a week's questions.
type WeekMeta struct {
	Week        int    `yaml:"week" json:"week"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// CatalogModule is the metadata wrapper around an age band: titles plus the
// gamification texts shown at the start and end of a journey.
type CatalogModule struct {
	ID             string     `yaml:"id" json:"id"`
	Title          string     `yaml:"title" json:"title"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty"`
	AgeMinMonths   int        `yaml:"age_min_months" json:"age_min_months"`
	AgeMaxMonths   int        `yaml:"age_max_months" json:"age_max_months"`
	WelcomeMessage string     `yaml:"welcome_message,omitempty" json:"welcome_message,omitempty"`
	ClosingMessage string     `yaml:"closing_message,omitempty" json:"closing_message,omitempty"`
	BadgeTitle     string     `yaml:"badge_title,omitempty" json:"badge_title,omitempty"`
	Weeks          []WeekMeta `yaml:"weeks,omitempty" json:"weeks,omitempty"`
}

func (m CatalogModule) MatchesAge(ageInMonths int) bool {
	return m.AgeMinMonths <= ageInMonths && ageInMonths <= m.AgeMaxMonths
}

func (m CatalogModule) WeekMeta(week int) (WeekMeta, bool) {
	for _, w := range m.Weeks {
		if w.Week == week {
			return w, true
		}
	}
	return WeekMeta{}, false
}

const DefaultDomain = "geral"
