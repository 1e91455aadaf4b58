package models

// Subscription is the lead-capture form submission.
type Subscription struct {
	Email    string `json:"email"`
	Telegram string `json:"telegram,omitempty"`
	Source   string `json:"source,omitempty"`
}

// SubscribeResponse is always successful toward the caller; relay failures
// are an operator concern only.
type SubscribeResponse struct {
	Success bool   `json:"success"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ContactMessage is the contact-form payload. It is logged, not relayed.
type ContactMessage struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}
