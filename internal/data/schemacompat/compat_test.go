package schemacompat

import (
	"testing"
	"time"
)

func TestCounterpart(t *testing.T) {
	cases := map[string]string{
		"student_id":         "studentId",
		"studentId":          "student_id",
		"age_min_months":     "ageMinMonths",
		"ageMinMonths":       "age_min_months",
		"userID":             "user_id",
		"id":                 "id",
		"answered_questions": "answeredQuestions",
		"_id":                "_id",
		"__meta":             "__meta",
		"a__b":               "a__b",
		"a_b_c":              "a_b_c",
		"trailing_":          "trailing_",
	}
	for in, want := range cases {
		if got := Counterpart(in); got != want {
			t.Fatalf("Counterpart(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestSetUnderscoreNameKeepsID(t *testing.T) {
	r := Wrap(map[string]any{"id": "r1"})
	r.Set("_id", "mongo-ish")
	if r.ID() != "r1" {
		t.Fatalf("ID after Set(_id): want=%q got=%q", "r1", r.ID())
	}
	if v, _ := r.Get("_id"); v != "mongo-ish" {
		t.Fatalf("Get(_id): want=%q got=%v", "mongo-ish", v)
	}
	r.Set("a_b_c", 1)
	if _, ok := r["aBC"]; ok {
		t.Fatalf("Set(a_b_c): lossy camel spelling written, got=%v", r)
	}
}

func TestSetKeepsBothSpellingsEqual(t *testing.T) {
	fields := []string{"student_id", "studentId", "answerText", "total_questions", "status"}
	for _, f := range fields {
		r := Wrap(map[string]any{"id": "r1"})
		r.Set(f, "v-"+f)
		if v, _ := r.Get(f); v != "v-"+f {
			t.Fatalf("Get(%q) after Set: want=%q got=%v", f, "v-"+f, v)
		}
		alt := Counterpart(f)
		if v, _ := r.Get(alt); v != "v-"+f {
			t.Fatalf("Get(%q) after Set(%q): want=%q got=%v", alt, f, "v-"+f, v)
		}
	}
}

func TestGetFallsBackToCounterpartAndMissingIsNotAnError(t *testing.T) {
	r := Wrap(map[string]any{"subjectId": "child-1"})
	if got := r.String("subject_id"); got != "child-1" {
		t.Fatalf("subject_id via camel: got=%q", got)
	}
	if v, ok := r.Get("note"); ok || v != nil {
		t.Fatalf("missing field: want absent got=%v", v)
	}
}

func TestToExternalAndToInternal(t *testing.T) {
	ext := ToExternal(Record{"user_id": "u1", "answerText": "Sim", "id": "x"})
	for _, k := range []string{"user_id", "userId", "answer_text", "answerText", "id"} {
		if _, ok := ext[k]; !ok {
			t.Fatalf("ToExternal: missing %q in %v", k, ext)
		}
	}

	in := ToInternal(Record{"user_id": "snake", "userId": "camel", "totalQuestions": 3.0})
	if in["user_id"] != "snake" {
		t.Fatalf("ToInternal: snake spelling should win, got=%v", in["user_id"])
	}
	if _, ok := in["userId"]; ok {
		t.Fatalf("ToInternal: camel key leaked: %v", in)
	}
	if in["total_questions"] != 3.0 {
		t.Fatalf("ToInternal: camel-only field lost: %v", in)
	}
}

func TestEncodeDecodeAcrossConventions(t *testing.T) {
	type rec struct {
		ID             string    `json:"id"`
		SubjectID      string    `json:"subject_id"`
		TotalQuestions int       `json:"total_questions"`
		CreatedAt      time.Time `json:"created_at"`
	}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r, err := Encode(rec{ID: "s1", SubjectID: "child-9", TotalQuestions: 4, CreatedAt: now})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if r["subjectId"] != r["subject_id"] || r["totalQuestions"] != r["total_questions"] {
		t.Fatalf("Encode: spellings diverge: %v", r)
	}

	// A camelCase-only record (as written by the device-local tier) decodes too.
	camelOnly := Record{"id": "s2", "subjectId": "child-7", "totalQuestions": 2.0}
	var out rec
	if err := Decode(camelOnly, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.SubjectID != "child-7" || out.TotalQuestions != 2 {
		t.Fatalf("Decode camel-only: got=%+v", out)
	}
}
