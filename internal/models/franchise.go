package models

// Franchise owns stores. Admins is nil when the caller may not see admin
// identities, which drops the field from JSON.
type Franchise struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Admins *[]UserSummary `json:"admins,omitempty"`
	Stores []Store        `json:"stores"`
}

type Store struct {
	ID          string `json:"id"`
	FranchiseID string `json:"franchiseId,omitempty"`
	Name        string `json:"name"`
}

// AdminRef names a franchise admin by email.
type AdminRef struct {
	Email string `json:"email"`
}

type FranchiseSpec struct {
	Name   string     `json:"name"`
	Admins []AdminRef `json:"admins"`
}

type StoreSpec struct {
	Name string `json:"name"`
}

// FranchisePage is one page of a franchise listing.
type FranchisePage struct {
	Franchises []Franchise `json:"franchises"`
	More       bool        `json:"more"`
}
