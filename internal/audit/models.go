package audit

import "time"

// Action classifies a privacy-relevant operation.
type Action string

const (
	ActionDataExport        Action = "data_export"
	ActionDataDeletion      Action = "data_deletion"
	ActionDataAnonymization Action = "data_anonymization"
	ActionConsentUpdated    Action = "consent_updated"
)

// Entry records one privacy-relevant action. Entries are immutable once
// appended and never reference raw personal data: Subject is the
// pseudonymized customer reference and Details are masked before they
// reach the store.
type Entry struct {
	ID        string
	Timestamp time.Time
	Action    Action
	Subject   string
	Performer string
	ClientIP  string
	Device    string
	Details   map[string]string
	Notes     string
}
