package dto

// RedemptionRequest captures POST /rewards/:id/redemptions payload.
type RedemptionRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// IDListResponse wraps a list of identifiers.
type IDListResponse struct {
	UserID string   `json:"user_id"`
	Kind   string   `json:"kind,omitempty"`
	IDs    []string `json:"ids"`
}
