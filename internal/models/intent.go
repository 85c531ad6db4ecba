package models

// IntentKind is the classified purpose of a chat query.
type IntentKind string

const (
	IntentBookInterview IntentKind = "book_interview"
	IntentAskQuestion   IntentKind = "ask_question"
)

// Valid reports whether k is a known intent.
func (k IntentKind) Valid() bool {
	return k == IntentBookInterview || k == IntentAskQuestion
}

// BookingFields are the candidate booking details pulled from free text.
// A nil field was not provided.
type BookingFields struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Date  *string `json:"date"`
	Time  *string `json:"time"`
}

// Missing returns the names of the absent fields in name, email, date, time order.
func (f BookingFields) Missing() []string {
	var missing []string
	if f.Name == nil {
		missing = append(missing, "name")
	}
	if f.Email == nil {
		missing = append(missing, "email")
	}
	if f.Date == nil {
		missing = append(missing, "date")
	}
	if f.Time == nil {
		missing = append(missing, "time")
	}
	return missing
}

// Complete reports whether all four fields are present.
func (f BookingFields) Complete() bool {
	return len(f.Missing()) == 0
}

// Merge returns f with absent fields filled from other.
func (f BookingFields) Merge(other BookingFields) BookingFields {
	if f.Name == nil {
		f.Name = other.Name
	}
	if f.Email == nil {
		f.Email = other.Email
	}
	if f.Date == nil {
		f.Date = other.Date
	}
	if f.Time == nil {
		f.Time = other.Time
	}
	return f
}

// Intent is the classifier's reading of a query.
type Intent struct {
	Kind IntentKind `json:"intent"`
	BookingFields
}

// DefaultIntent is used whenever classification fails.
func DefaultIntent() Intent {
	return Intent{Kind: IntentAskQuestion}
}
