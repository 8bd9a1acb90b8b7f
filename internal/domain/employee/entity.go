package employee

// Employee carries the identity columns printed on attendance reports.
// UserID is the id punches are recorded under.
type Employee struct {
	UserID         string  `json:"user_id"`
	EmployeeCode   *string `json:"employee_id,omitempty"`
	FullName       string  `json:"full_name"`
	Username       string  `json:"username"`
	DepartmentID   *string `json:"department_id,omitempty"`
	DepartmentName *string `json:"department,omitempty"`
	IsActive       bool    `json:"is_active"`
}

// DisplayName prefers the full name and falls back to the username.
func (e Employee) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}
	if e.Username != "" {
		return e.Username
	}
	return "N/A"
}

func (e Employee) Code() string {
	if e.EmployeeCode == nil || *e.EmployeeCode == "" {
		return "N/A"
	}
	return *e.EmployeeCode
}

func (e Employee) Department() string {
	if e.DepartmentName == nil || *e.DepartmentName == "" {
		return "N/A"
	}
	return *e.DepartmentName
}

// Unknown is the placeholder used when the directory has no profile for a user.
func Unknown(userID string) Employee {
	return Employee{UserID: userID, Username: userID}
}
