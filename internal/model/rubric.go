package model

// DefaultCriteria is substituted when a part has no quality criteria on the server.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{ID: "default_1", Name: "SPLD code", MaxPoints: 10},
		{ID: "default_2", Name: "Assembly Language Code Style", MaxPoints: 10},
		{ID: "default_3", Name: "Required Elements functionality", MaxPoints: 10},
		{ID: "default_4", Name: "Sign-off done without excessive retries", MaxPoints: 10},
		{ID: "default_5", Name: "Student understanding and skills", MaxPoints: 10},
	}
}

// DefaultEvaluationCriteria is the evaluation sheet used when the server sends none.
func DefaultEvaluationCriteria() []EvaluationCriterion {
	return []EvaluationCriterion{
		{Key: "cleanliness", Name: "Cleanliness", MaxMarks: 5},
		{Key: "hardware", Name: "Hardware", MaxMarks: 10},
		{Key: "timeliness", Name: "Timeliness", MaxMarks: 5},
		{Key: "student_preparation", Name: "Student Preparation", MaxMarks: 10},
		{Key: "code_implementation", Name: "Code Implementation", MaxMarks: 15},
		{Key: "commenting", Name: "Commenting", MaxMarks: 5},
		{Key: "schematic", Name: "Schematic", MaxMarks: 10},
		{Key: "course_participation", Name: "Course Participation", MaxMarks: 5},
	}
}
