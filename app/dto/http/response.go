package http

type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type LettersResponse struct {
	Letters []string `json:"letters"`
}

type PlansResponse struct {
	Letter string   `json:"letter"`
	Plans  []string `json:"plans"`
}

type MatchResultResponse struct {
	Email         string   `json:"email"`
	MatchingPlans []string `json:"matching_plans"`
	AllPlans      []string `json:"all_plans"`
	MatchingCount int      `json:"matching_count"`
	Completion    string   `json:"completion"`
	HasExtraPlans bool     `json:"has_extra_plans"`
}

type PlanSearchResponse struct {
	Count   int                   `json:"count"`
	Results []MatchResultResponse `json:"results"`
}

type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserSearchResponse struct {
	Count int            `json:"count"`
	Users []UserResponse `json:"users"`
}

type RebuildResponse struct {
	Entries        int `json:"entries"`
	Titles         int `json:"titles"`
	Letters        int `json:"letters"`
	RejectedTitles int `json:"rejected_titles"`
	RejectedEmails int `json:"rejected_emails"`
	UserRecords    int `json:"user_records"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
