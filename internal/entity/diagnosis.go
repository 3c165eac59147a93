package entity

// DataIssue is a structural problem found in a stored document.
type DataIssue struct {
	Location string
	Message  string
}

// Diagnosis is the read-only report on a user's profile and progress documents.
type Diagnosis struct {
	UserID         string
	Email          string
	ProfileExists  bool
	ProgressExists bool
	MissingFields  []string
	Profile        *ProfileDocument
	Progress       *ProgressDocument
	DataIssues     []DataIssue
}

// Healthy reports whether the profile exists with every stats counter present
// and no data issues were found.
func (d *Diagnosis) Healthy() bool {
	return d != nil && d.ProfileExists && len(d.MissingFields) == 0 && len(d.DataIssues) == 0
}
