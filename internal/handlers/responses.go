package handlers

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}
