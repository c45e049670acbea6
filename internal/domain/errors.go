package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidGender is returned when a profile carries a gender other than M or F.
	ErrInvalidGender = errors.New("invalid gender")

	// ErrTooManyHobbies is returned when a profile lists more than MaxHobbies hobbies.
	ErrTooManyHobbies = errors.New("too many hobbies")

	// ErrEmptyHobby is returned when a profile contains a blank hobby keyword.
	ErrEmptyHobby = errors.New("hobby cannot be empty")
)
