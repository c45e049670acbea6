package domain

import "strings"

// Gender is the normalized gender code of an extracted profile.
type Gender string

// Possible gender values
const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"

	// DefaultGender is used when the language model cannot determine a gender.
	// Kept for compatibility with the clients that consume this service.
	DefaultGender = GenderFemale
)

// MaxHobbies is the maximum number of hobby keywords kept on a profile.
const MaxHobbies = 4

// Profile is the structured result of analyzing a self-introduction video.
// Optional fields are pointers so that "unknown" is rendered as JSON null.
type Profile struct {
	Name         *string  `json:"name"`
	Age          *string  `json:"age"`
	Gender       Gender   `json:"gender"`
	Hobbies      []string `json:"hobbies"`
	Introduction *string  `json:"introduction"`
}

// NewProfile creates an empty profile with the default gender and no hobbies.
func NewProfile() *Profile {
	return &Profile{
		Gender:  DefaultGender,
		Hobbies: []string{},
	}
}

// Clone returns a deep copy of the profile. A nil profile clones to nil.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	clone := &Profile{
		Name:         cloneString(p.Name),
		Age:          cloneString(p.Age),
		Gender:       p.Gender,
		Introduction: cloneString(p.Introduction),
		Hobbies:      make([]string, len(p.Hobbies)),
	}
	copy(clone.Hobbies, p.Hobbies)

	return clone
}

// Validate checks the invariants every published profile must satisfy.
func (p *Profile) Validate() error {
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return ErrInvalidGender
	}

	if len(p.Hobbies) > MaxHobbies {
		return ErrTooManyHobbies
	}

	for _, hobby := range p.Hobbies {
		if strings.TrimSpace(hobby) == "" {
			return ErrEmptyHobby
		}
	}

	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
