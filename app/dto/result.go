package dto

type SessionResult struct {
	Token     string
	ExpiresIn int64
}
