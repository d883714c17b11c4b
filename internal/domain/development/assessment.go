package development

import "time"

type AssessmentStatus string

const (
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentCompleted  AssessmentStatus = "completed"
)

type AssessmentItem struct {
	QuestionID    string `json:"question_id"`
	Domain        string `json:"domain"`
	Prompt        string `json:"prompt"`
	ResponseLevel *int   `json:"response_level"`
	Note          string `json:"note,omitempty"`
}

// Assessment is the domain-scoped variant of a journey: the item list is
// frozen at creation and each item carries at most one response level.
type Assessment struct {
	ID          string           `json:"id"`
	SubjectID   string           `json:"subject_id"`
	UserID      string           `json:"user_id"`
	AgeInMonths int              `json:"age_in_months"`
	Domains     []string         `json:"domains"`
	Items       []AssessmentItem `json:"items"`
	Status      AssessmentStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (a *Assessment) CompletedItems() int {
	n := 0
	for _, it := range a.Items {
		if it.ResponseLevel != nil {
			n++
		}
	}
	return n
}

// Progress is round(completedItems/totalItems*100).
func (a *Assessment) Progress() int {
	return Percent(a.CompletedItems(), len(a.Items))
}
