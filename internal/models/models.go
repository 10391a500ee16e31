package models

import "time"

// Role distinguishes who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks transient placeholder turns ("thinking") that are
	// removed before the terminal state of a query is shown.
	RoleSystem Role = "system"
)

// User represents a locally registered account.
type User struct {
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Profession string    `json:"profession,omitempty"`
	Purpose    string    `json:"purpose,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is the client-side view of a backend-indexed document.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Chunks  int    `json:"chunks,omitempty"`
	FileURL string `json:"file_url,omitempty"`
}

// Turn is one entry of the chat transcript. IDs are unique and generation
// order matches transcript order.
type Turn struct {
	ID      string   `json:"id"`
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Sources []string `json:"sources,omitempty"`
}

// PostprocessOption is a post-upload action advertised by the backend.
type PostprocessOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
