package domain

// User is the signed-in identity as reported by the load balancer's OIDC
// token. UniqueName carries the employee's MIAM ID (mail address).
type User struct {
	Name       string `json:"name"`
	UniqueName string `json:"unique_name"`
}

// Employee is the directory record returned by the backend. Only the company
// and office codes are used by the chat; the rest is passed through.
type Employee struct {
	Name               string `json:"name,omitempty"`
	Company            string `json:"company,omitempty"`
	CompanyCode        string `json:"company_code,omitempty"`
	OfficeCode         string `json:"office_code,omitempty"`
	Department         string `json:"department,omitempty"`
	DisplayName        string `json:"displayName,omitempty"`
	LastLogonTimestamp string `json:"lastLogonTimestamp,omitempty"`
	Mail               string `json:"mail,omitempty"`
	Office             string `json:"office,omitempty"`
}

type EmployeeResponse struct {
	Employee Employee `json:"employee"`
}

// EmployeeInfo is the cached employee context required before any turn can
// be sent.
type EmployeeInfo struct {
	CompanyCode string `json:"company_code"`
	OfficeCode  string `json:"office_code"`
}

// Complete reports whether both codes are present.
func (e *EmployeeInfo) Complete() bool {
	return e != nil && e.CompanyCode != "" && e.OfficeCode != ""
}

// Profile is everything the chat surface needs to send a turn on behalf of a
// user.
type Profile struct {
	MiamID   string
	Employee *EmployeeInfo
}

// RequestBase returns a request pre-filled with the user's identity and
// employee context.
func (p *Profile) RequestBase() RagRequest {
	req := RagRequest{MiamID: p.MiamID}
	if p.Employee != nil {
		req.Company = p.Employee.CompanyCode
		req.Office = p.Employee.OfficeCode
	}
	return req
}
