package development

import "time"

// AnswerCode is the 1..3 code behind the three fixed answer labels.
type AnswerCode int

const (
	AnswerYes       AnswerCode = 1
	AnswerSometimes AnswerCode = 2
	AnswerNotYet    AnswerCode = 3
)

var answerLabels = [...]string{
	AnswerYes:       "Sim",
	AnswerSometimes: "Às vezes",
	AnswerNotYet:    "Ainda não",
}

func (c AnswerCode) Valid() bool { return c >= AnswerYes && c <= AnswerNotYet }

// Label returns the fixed label for the code, or "" when the code is invalid.
func (c AnswerCode) Label() string {
	if !c.Valid() {
		return ""
	}
	return answerLabels[c]
}

// AnswerCodes lists the codes in presentation order.
func AnswerCodes() []AnswerCode {
	return []AnswerCode{AnswerYes, AnswerSometimes, AnswerNotYet}
}

type Response struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id,omitempty"`
	SubjectID  string     `json:"subject_id"`
	UserID     string     `json:"user_id"`
	QuestionID string     `json:"question_id"`
	Domain     string     `json:"domain"`
	Answer     AnswerCode `json:"answer"`
	AnswerText string     `json:"answer_text"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
