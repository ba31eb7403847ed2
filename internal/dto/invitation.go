package dto

// Sort modes for invitation listings
const (
	SortByDate = "date"
	SortByRole = "role"
)

// ListInvitationsQuery represents query parameters for the caller's invitations
type ListInvitationsQuery struct {
	Sort string `form:"sort" binding:"omitempty,oneof=date role"`
}

// SetDefaults sorts by date unless told otherwise
func (q *ListInvitationsQuery) SetDefaults() {
	if q.Sort == "" {
		q.Sort = SortByDate
	}
}

// RSVPRequest carries an invitee's answer
type RSVPRequest struct {
	Status string `json:"status" binding:"required"`
}

// RSVPResponse reports the caller's status after answering
type RSVPResponse struct {
	EventID string `json:"event_id"`
	Email   string `json:"email"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}
