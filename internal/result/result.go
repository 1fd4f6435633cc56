package result

import "encoding/json"

// Status is the outcome of one login attempt
type Status int

const (
	Processing Status = iota
	WrongCredentials
	Success
	UnknownError
	SystemError
)

var statusNames = map[Status]string{
	Processing:       "Processing",
	WrongCredentials: "Wrong Credentials",
	Success:          "Success",
	UnknownError:     "Unknown Error",
	SystemError:      "Error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Status(?)"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Record is the per-credential output row.
type Record struct {
	Identifier       string `json:"identifier"`
	Status           Status `json:"status"`
	FullName         string `json:"full_name"`
	TaxID            string `json:"tax_id"`
	SocialSecurityID string `json:"social_security_id"`
	TaxOffice        string `json:"tax_office"`
}

// New starts a record for identifier in the Processing state.
func New(identifier string) Record {
	return Record{Identifier: identifier, Status: Processing}
}

// Columns are the export headers, in order.
var Columns = []string{"USERNAME", "STATUS", "ΟΝΟΜΑΤΕΠΩΝΥΜΟ", "ΑΦΜ", "ΑΜΚΑ", "ΔΟΥ"}

// Row returns the record's cells in Columns order.
func (r Record) Row() []string {
	return []string{r.Identifier, r.Status.String(), r.FullName, r.TaxID, r.SocialSecurityID, r.TaxOffice}
}

// Tally counts records per status.
func Tally(records []Record) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}
