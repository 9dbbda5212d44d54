package dto

// BulkAssignResult reports the outcome of assigning a module to many trainees.
type BulkAssignResult struct {
	Assigned             []string `json:"assigned"`
	TotalRequested       int      `json:"total_requested"`
	SuccessfullyAssigned int      `json:"successfully_assigned"`
	Errors               []string `json:"errors,omitempty"`
}

// SendMessageResult reports how many instructors received a message.
type SendMessageResult struct {
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
}
