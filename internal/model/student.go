package model

// SearchResult is one row returned by the student name search.
type SearchResult struct {
	ID        uint   `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// SelectedStudent is the student a signoff session is grading.
type SelectedStudent struct {
	ID        uint   `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// EmailOrPlaceholder returns the email, or the text shown when none is on file.
func (s SelectedStudent) EmailOrPlaceholder() string {
	if s.Email == "" {
		return "No email provided"
	}
	return s.Email
}
