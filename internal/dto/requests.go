package dto

// RegisterRequest represents the request to register a new account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateListingRequest represents the request to create a listing
type CreateListingRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required"`
}

// SendMessageRequest represents the request to send a message
type SendMessageRequest struct {
	Content  string  `json:"content"`
	FileURL  *string `json:"file_url"`
	FileType *string `json:"file_type"`
}

// ReportMessageRequest represents the request to report a message
type ReportMessageRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

// ReviewReportRequest represents the request to move a report to a new status
type ReviewReportRequest struct {
	Status string `json:"status" binding:"required"`
}
