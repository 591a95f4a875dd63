package domain

import "time"

// AnswerUpdate lists the fields a resubmission may overwrite. Nil means the field is absent
// and left untouched; a non-nil pointer to a zero value is applied as that zero value.
type AnswerUpdate struct {
	SubmitAnswer *string
	RightAnswer  *string
	Score        *int
	UpdatedAt    *time.Time
}

// Apply copies every present field onto a and returns the result.
func (u AnswerUpdate) Apply(a Answer) Answer {
	if u.SubmitAnswer != nil {
		a.SubmitAnswer = *u.SubmitAnswer
	}
	if u.RightAnswer != nil {
		a.RightAnswer = *u.RightAnswer
	}
	if u.Score != nil {
		a.Score = *u.Score
	}
	if u.UpdatedAt != nil {
		a.UpdatedAt = *u.UpdatedAt
	}
	return a
}

// IsEmpty reports whether no field is present.
func (u AnswerUpdate) IsEmpty() bool {
	return u.SubmitAnswer == nil && u.RightAnswer == nil && u.Score == nil && u.UpdatedAt == nil
}

// ProgressUpdate lists the fields a recompute may overwrite.
type ProgressUpdate struct {
	Progress  *float64
	CourseID  *string
	UpdatedAt *time.Time
}

func (u ProgressUpdate) Apply(p ProgressRecord) ProgressRecord {
	if u.Progress != nil {
		p.Progress = *u.Progress
	}
	if u.CourseID != nil {
		p.CourseID = *u.CourseID
	}
	if u.UpdatedAt != nil {
		p.UpdatedAt = *u.UpdatedAt
	}
	return p
}
