package directory

// Entry is one remote employee search result. Read-only; never persisted
// beyond the current workflow run.
type Entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

type enrolRequest struct {
	SiteID          string `json:"siteId"`
	DeviceID        string `json:"deviceId"`
	EmployeeName    string `json:"employeeName"`
	TemplateBase64  string `json:"templateBase64"`
	ClientLocalTime string `json:"clientLocalTime"`
}

type reEnrolRequest struct {
	EnrollmentID    int    `json:"enrollmentId"`
	TemplateBase64  string `json:"templateBase64"`
	ClientLocalTime string `json:"clientLocalTime"`
}

// EnrolResponse is returned by both enrol and re-enrol.
type EnrolResponse struct {
	EnrollmentID          int    `json:"enrollmentId"`
	EnrollmentIDFormatted string `json:"enrollmentIdFormatted"`
	EmployeeRef           string `json:"employeeRef"`
	Status                string `json:"status"`
}

type scanRequest struct {
	EnrollmentID    int     `json:"enrollmentId"`
	Confidence      float64 `json:"confidence"`
	EmployeeName    string  `json:"employeeName"`
	ClientLocalTime string  `json:"clientLocalTime"`
}

// ScanResponse carries the clock direction the server decided for this scan
// by toggling on the last recorded event for the identity.
type ScanResponse struct {
	Action string `json:"action"` // "IN" or "OUT"
}

type templateResponse struct {
	TemplateBase64 string `json:"templateBase64"`
}
