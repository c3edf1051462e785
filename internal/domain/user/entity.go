package user

import "time"

// Record is a generated user as written to the raw intermediate file.
type Record struct {
	UserID     int64     // UserID is the sequential source identifier, 1..N
	Name       string    // Name is the synthetic full name
	Email      string    // Email is the synthetic address, not yet validated
	SignupDate time.Time // SignupDate carries a time of day
}

// TransformedRecord is a validated user with its email domain.
type TransformedRecord struct {
	UserID     int64
	Name       string
	Email      string
	SignupDate time.Time // SignupDate is truncated to the calendar date
	Domain     string
	HasDomain  bool
}

// Persisted is the subset of a transformed record stored in the destination
// table. The source user ID is not kept; the store assigns its own key.
type Persisted struct {
	Name       string
	Email      string
	SignupDate time.Time
}

// Transform validates r and derives the transformed record. ok is false when
// the email fails validation and the record must be dropped.
func Transform(r Record) (TransformedRecord, bool) {
	if !IsValidEmail(r.Email) {
		return TransformedRecord{}, false
	}

	domain, hasDomain := ExtractDomain(r.Email)
	return TransformedRecord{
		UserID:     r.UserID,
		Name:       r.Name,
		Email:      r.Email,
		SignupDate: DateOnly(r.SignupDate),
		Domain:     domain,
		HasDomain:  hasDomain,
	}, true
}

// DateOnly drops the time of day, keeping the calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ToPersisted projects a transformed record onto the stored columns.
func (t TransformedRecord) ToPersisted() Persisted {
	return Persisted{
		Name:       t.Name,
		Email:      t.Email,
		SignupDate: t.SignupDate,
	}
}
