package entity

// UserRecord maps a support-desk username to its account email. Username
// keeps its original case for display and is matched case-insensitively.
// The collection is not deduplicated; several records may share an email.
type UserRecord struct {
	Username string
	Email    string
}
