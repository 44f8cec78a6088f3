package dto

// StudentDTO is one entry of the student name search response.
type StudentDTO struct {
	ID        uint   `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// StudentSearchResponse is returned by GET /api/student-name-search/?query=
type StudentSearchResponse struct {
	Students []StudentDTO `json:"students"`
}

// PartDTO is one entry of GET /api/get-parts/?lab_id=
type PartDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PartSignoffDTO is one entry of GET /api/get-signoffs/?student_id=&lab_id=
type PartSignoffDTO struct {
	PartID uint   `json:"part_id"`
	Status string `json:"status"`
}

// ErrorResponse is the error body the API sends with non-2xx statuses.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
