package models

import "time"

// Author is the populated owner reference carried on a Book.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Book struct {
	BID       string    `json:"id,omitempty"`
	Title     string    `json:"title" validate:"required"`
	Genre     string    `json:"genre" validate:"required"`
	Desc      string    `json:"description" validate:"required"`
	Author    Author    `json:"author"`
	CoverURL  string    `json:"coverImage,omitempty"`
	FileURL   string    `json:"file,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type User struct {
	UID   string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password,omitempty" validate:"required,min=8"`
}
