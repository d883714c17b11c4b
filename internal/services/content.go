package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

const defaultFeedback = "Obrigado pela resposta! Cada criança se desenvolve no seu próprio ritmo."

type StepType string

const (
	StepWelcome         StepType = "welcome"
	StepWeekTitle       StepType = "week_title"
	StepWeekDescription StepType = "week_description"
	StepQuestion        StepType = "question"
	StepFeedback        StepType = "feedback"
	StepClosing         StepType = "closing"
)

type StepOption struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
	Label string `json:"label"`
	Hint  string `json:"hint,omitempty"`
}

type Step struct {
	ID             string            `json:"id"`
	Type           StepType          `json:"type"`
	Week           int               `json:"week,omitempty"`
	Title          string            `json:"title,omitempty"`
	Content        string            `json:"content,omitempty"`
	QuestionID     string            `json:"questionId,omitempty"`
	Domain         string            `json:"domain,omitempty"`
	Options        []StepOption      `json:"options,omitempty"`
	OptionFeedback map[string]string `json:"optionFeedback,omitempty"`
	BadgeTitle     string            `json:"badgeTitle,omitempty"`
}

// Journey is the presentable content set for one age.
type Journey struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AgeRangeMin    int    `json:"ageRangeMin"`
	AgeRangeMax    int    `json:"ageRangeMax"`
	TotalQuestions int    `json:"totalQuestions"`
	Steps          []Step `json:"steps"`
}

// Catalog is the read-only content source. *catalog.Catalog satisfies it.
type Catalog interface {
	Entries() []types.CatalogEntry
	Entry(id string) (types.CatalogEntry, bool)
	ModuleFor(ageInMonths int) (types.CatalogModule, bool)
}

type ContentService interface {
	// SelectForAge returns the active entries whose band contains the age,
	// ordered by (week, orderIndex). Ages below 1 are clamped to 1.
	SelectForAge(ageInMonths int) ([]types.CatalogEntry, error)
	BuildSteps(ageInMonths int, entries []types.CatalogEntry) []Step
	Journey(ageInMonths int) (*Journey, error)
	// QuestionsFor narrows SelectForAge to one domain; an empty domain keeps all.
	QuestionsFor(ageInMonths int, domain string) ([]types.CatalogEntry, error)
	Entry(id string) (types.CatalogEntry, bool)
}

type contentService struct {
	log     *logger.Logger
	catalog Catalog
}

func NewContentService(log *logger.Logger, catalog Catalog) ContentService {
	return &contentService{log: log.With("service", "ContentService"), catalog: catalog}
}

func clampAge(ageInMonths int) int {
	if ageInMonths < 1 {
		return 1
	}
	return ageInMonths
}

func (s *contentService) SelectForAge(ageInMonths int) ([]types.CatalogEntry, error) {
	age := clampAge(ageInMonths)
	var out []types.CatalogEntry
	for _, e := range s.catalog.Entries() {
		if e.IsActive && e.MatchesAge(age) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d months", ErrNoContentForAge, age)
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].WeekOrDefault(), out[j].WeekOrDefault()
		if wi != wj {
			return wi < wj
		}
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (s *contentService) QuestionsFor(ageInMonths int, domain string) ([]types.CatalogEntry, error) {
	entries, err := s.SelectForAge(ageInMonths)
	if err != nil {
		return nil, err
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return entries, nil
	}
	var out []types.CatalogEntry
	for _, e := range entries {
		if e.DomainOrDefault() == domain {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d months, domain %s", ErrNoContentForAge, clampAge(ageInMonths), domain)
	}
	return out, nil
}

func (s *contentService) Entry(id string) (types.CatalogEntry, bool) {
	return s.catalog.Entry(id)
}

type band struct {
	module    types.CatalogModule
	hasModule bool
	min, max  int
}

func (s *contentService) bandFor(ageInMonths int, entries []types.CatalogEntry) band {
	b := band{}
	b.module, b.hasModule = s.catalog.ModuleFor(clampAge(ageInMonths))
	if b.hasModule {
		b.min, b.max = b.module.AgeMinMonths, b.module.AgeMaxMonths
		return b
	}
	for i, e := range entries {
		if i == 0 || e.AgeMinMonths < b.min {
			b.min = e.AgeMinMonths
		}
		if i == 0 || e.AgeMaxMonths > b.max {
			b.max = e.AgeMaxMonths
		}
	}
	return b
}

func (b band) id() string {
	if b.hasModule {
		return b.module.ID
	}
	return fmt.Sprintf("age-%d-%d", b.min, b.max)
}

func (s *contentService) BuildSteps(ageInMonths int, entries []types.CatalogEntry) []Step {
	b := s.bandFor(ageInMonths, entries)
	welcome := fmt.Sprintf("Bem-vindo(a) ao módulo %d-%d meses!", b.min, b.max)
	closing := fmt.Sprintf("Parabéns! Você concluiu o módulo %d-%d meses.", b.min, b.max)
	badge := ""
	if b.hasModule {
		if b.module.WelcomeMessage != "" {
			welcome = b.module.WelcomeMessage
		}
		if b.module.ClosingMessage != "" {
			closing = b.module.ClosingMessage
		}
		badge = b.module.BadgeTitle
	}

	steps := make([]Step, 0, len(entries)*2+2)
	steps = append(steps, Step{ID: "welcome", Type: StepWelcome, Content: welcome})

	week := 0
	for i, e := range entries {
		if w := e.WeekOrDefault(); i == 0 || w != week {
			week = w
			if meta, ok := b.module.WeekMeta(week); b.hasModule && ok {
				if meta.Title != "" {
					steps = append(steps, Step{ID: fmt.Sprintf("week-%d-title", week), Type: StepWeekTitle, Week: week, Title: meta.Title})
				}
				if meta.Description != "" {
					steps = append(steps, Step{ID: fmt.Sprintf("week-%d-description", week), Type: StepWeekDescription, Week: week, Content: meta.Description})
				}
			}
		}
		steps = append(steps, questionStep(e), feedbackStep(e))
	}

	steps = append(steps, Step{ID: "closing", Type: StepClosing, Content: closing, BadgeTitle: badge})
	return steps
}

// OptionID is the id of the option carrying code for entry entryID.
func OptionID(entryID string, code types.AnswerCode) string {
	return fmt.Sprintf("%s-%d", entryID, int(code))
}

// ParseOptionID splits a selected option id into its entry id and answer
// code. The code is the suffix after the last '-'. A bare "-2" carries no
// entry id, so questionID is used. A non-empty prefix must match questionID
// when both are given.
func ParseOptionID(questionID, optionID string) (string, types.AnswerCode, error) {
	questionID = strings.TrimSpace(questionID)
	optionID = strings.TrimSpace(optionID)
	idx := strings.LastIndex(optionID, "-")
	if idx < 0 || idx == len(optionID)-1 {
		return "", 0, apierr.Validationf("invalid_option_id", "option id %q has no answer code suffix", optionID)
	}
	n, err := strconv.Atoi(optionID[idx+1:])
	if err != nil || !types.AnswerCode(n).Valid() {
		return "", 0, fmt.Errorf("%w: option %q", ErrInvalidAnswer, optionID)
	}
	prefix := optionID[:idx]
	switch {
	case prefix == "" && questionID == "":
		return "", 0, apierr.Validationf("missing_question_id", "questionId is required")
	case prefix == "":
		return questionID, types.AnswerCode(n), nil
	case questionID == "":
		return prefix, types.AnswerCode(n), nil
	case prefix != questionID:
		return "", 0, apierr.Validationf("option_question_mismatch", "option %q does not belong to question %q", optionID, questionID)
	}
	return questionID, types.AnswerCode(n), nil
}

func questionStep(e types.CatalogEntry) Step {
	opts := make([]StepOption, 0, 3)
	for i, code := range types.AnswerCodes() {
		opt := StepOption{ID: OptionID(e.ID, code), Value: int(code), Label: code.Label()}
		if i < len(e.Choices) {
			opt.Hint = e.Choices[i]
		}
		opts = append(opts, opt)
	}
	return Step{
		ID:         "question-" + e.ID,
		Type:       StepQuestion,
		Week:       e.WeekOrDefault(),
		Content:    e.Prompt,
		QuestionID: e.ID,
		Domain:     e.DomainOrDefault(),
		Options:    opts,
	}
}

func feedbackStep(e types.CatalogEntry) Step {
	text := strings.TrimSpace(e.FeedbackText)
	if text == "" {
		text = defaultFeedback
	}
	st := Step{
		ID:         "feedback-" + e.ID,
		Type:       StepFeedback,
		Week:       e.WeekOrDefault(),
		Content:    text,
		QuestionID: e.ID,
		Domain:     e.DomainOrDefault(),
	}
	for i, code := range types.AnswerCodes() {
		if i >= len(e.ChoiceFeedback) || strings.TrimSpace(e.ChoiceFeedback[i]) == "" {
			continue
		}
		if st.OptionFeedback == nil {
			st.OptionFeedback = map[string]string{}
		}
		st.OptionFeedback[OptionID(e.ID, code)] = e.ChoiceFeedback[i]
	}
	return st
}

func (s *contentService) Journey(ageInMonths int) (*Journey, error) {
	entries, err := s.SelectForAge(ageInMonths)
	if err != nil {
		return nil, err
	}
	b := s.bandFor(ageInMonths, entries)
	j := &Journey{
		ID:             b.id(),
		Title:          fmt.Sprintf("Módulo %d-%d meses", b.min, b.max),
		AgeRangeMin:    b.min,
		AgeRangeMax:    b.max,
		TotalQuestions: len(entries),
		Steps:          s.BuildSteps(ageInMonths, entries),
	}
	if b.hasModule {
		if b.module.Title != "" {
			j.Title = b.module.Title
		}
		j.Description = b.module.Description
	}
	s.log.Debug("journey built", "content_set", j.ID, "age_in_months", clampAge(ageInMonths), "questions", j.TotalQuestions)
	return j, nil
}
