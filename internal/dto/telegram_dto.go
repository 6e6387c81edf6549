package dto

type TelegramValidateRequest struct {
	InitData string `json:"initData"`
}

// TelegramValidateResponse carries the reconciled identity plus a session
// for the client to persist.
type TelegramValidateResponse struct {
	Validated bool          `json:"validated"`
	User      UserResponse  `json:"user"`
	Role      string        `json:"role"`
	Session   *AuthResponse `json:"session,omitempty"`
}

// ValidationErrorResponse is the error body of the Telegram endpoint.
type ValidationErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
