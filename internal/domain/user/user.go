// Package user holds the normalized directory user and the rules that turn
// upstream records into it.
package user

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lllypuk/userdir/internal/domain/errs"
)

// Placeholders shown when the upstream record has no nested address or company.
const (
	CityUnavailable    = "Ciudad no disponible"
	CompanyUnavailable = "Empresa no disponible"
)

// avatarPalette is indexed by user ID to give each user a stable colour.
//
//nolint:gochecknoglobals // read-only lookup table
var avatarPalette = []string{
	"blue",
	"green",
	"purple",
	"pink",
	"indigo",
	"red",
	"yellow",
	"teal",
}

// User is a directory entry. It is immutable once constructed.
type User struct {
	id       int
	name     string
	email    string
	phone    string
	website  string
	city     string
	company  string
	username string
}

// Fields carries the values used to build a User.
type Fields struct {
	ID       int
	Name     string
	Email    string
	Phone    string
	Website  string
	City     string
	Company  string
	Username string
}

// NewUser validates the identifying fields and builds a User.
// Empty City and Company fall back to their placeholders.
func NewUser(f Fields) (User, error) {
	if f.ID <= 0 {
		return User{}, errs.ErrInvalidInput
	}
	if strings.TrimSpace(f.Name) == "" {
		return User{}, errs.ErrInvalidInput
	}

	return User{
		id:       f.ID,
		name:     f.Name,
		email:    f.Email,
		phone:    f.Phone,
		website:  f.Website,
		city:     OrDefault(&f.City, CityUnavailable),
		company:  OrDefault(&f.Company, CompanyUnavailable),
		username: f.Username,
	}, nil
}

// ID returns the upstream identifier.
func (u User) ID() int { return u.id }

// Name returns the display name.
func (u User) Name() string { return u.name }

// Email returns the email address as received.
func (u User) Email() string { return u.email }

// Phone returns the phone number as received.
func (u User) Phone() string { return u.phone }

// Website returns the website as received.
func (u User) Website() string { return u.website }

// City returns the city or CityUnavailable.
func (u User) City() string { return u.city }

// Company returns the company name or CompanyUnavailable.
func (u User) Company() string { return u.company }

// Username returns the username, possibly empty.
func (u User) Username() string { return u.username }

// IsZero reports whether u is the zero User.
func (u User) IsZero() bool { return u.id == 0 }

// Initials returns up to two upper-case initials taken from the first
// letter of each word in the name.
func (u User) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(u.name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return b.String()
}

// AvatarColor returns a palette colour chosen by ID.
func (u User) AvatarColor() string {
	if u.id <= 0 {
		return avatarPalette[0]
	}
	return avatarPalette[u.id%len(avatarPalette)]
}
