package domain

import "time"

type Customer struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	LastTransaction *time.Time
}

type Seller struct {
	ID    string
	Name  string
	Email string
}
