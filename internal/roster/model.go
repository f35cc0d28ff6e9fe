package roster

import (
	"strings"
	"time"
)

// Student is the normalized roster record. The LRN (learner reference number)
// is the stable external identifier; ID is our surrogate key.
type Student struct {
	ID            string    `json:"id"`
	LRN           string    `json:"lrn"`
	Name          string    `json:"name"`
	Section       string    `json:"section"`
	GradeLevel    string    `json:"grade_level"`
	GuardianEmail string    `json:"guardian_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RawStudent is the loosely-shaped student object older clients and imports
// still send: several spellings per field, any of which may be empty.
type RawStudent struct {
	StudentID    string `json:"studentId"`
	LRN          string `json:"lrn"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	FullName     string `json:"fullName"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Section      string `json:"section"`
	GradeLevel   string `json:"gradeLevel"`
	ParentEmail  string `json:"parentEmail"`
	ContactEmail string `json:"contactEmail"`
}

// Normalize collapses the alias fields into a Student. The first non-empty
// spelling wins, matching how codes generated by older app versions resolve.
func (r RawStudent) Normalize() Student {
	name := firstNonEmpty(r.Name, r.FullName, strings.TrimSpace(r.FirstName+" "+r.LastName))
	return Student{
		LRN:           firstNonEmpty(r.LRN, r.StudentID, r.ID),
		Name:          strings.TrimSpace(name),
		Section:       strings.TrimSpace(r.Section),
		GradeLevel:    strings.TrimSpace(r.GradeLevel),
		GuardianEmail: firstNonEmpty(r.ParentEmail, r.ContactEmail),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
