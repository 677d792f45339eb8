package user

import (
	"errors"
	"fmt"
)

// Normalization errors.
var (
	ErrInvalidRecord = errors.New("invalid user record")
	ErrDuplicateID   = errors.New("duplicate user id")
)

// Record is the upstream wire shape of a user. Optional values are pointers
// so an absent field can be told apart from an empty one.
type Record struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Email    *string        `json:"email,omitempty"`
	Phone    *string        `json:"phone,omitempty"`
	Website  *string        `json:"website,omitempty"`
	Username *string        `json:"username,omitempty"`
	Address  *AddressRecord `json:"address,omitempty"`
	Company  *CompanyRecord `json:"company,omitempty"`
}

// AddressRecord is the nested upstream address.
type AddressRecord struct {
	Street  string `json:"street,omitempty"`
	Suite   string `json:"suite,omitempty"`
	City    string `json:"city,omitempty"`
	Zipcode string `json:"zipcode,omitempty"`
}

// CompanyRecord is the nested upstream company.
type CompanyRecord struct {
	Name        string `json:"name,omitempty"`
	CatchPhrase string `json:"catchPhrase,omitempty"`
	BS          string `json:"bs,omitempty"`
}

// OrDefault resolves an optional value. A nil pointer or an empty string
// yields def.
func OrDefault(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func (a *AddressRecord) city() *string {
	if a == nil {
		return nil
	}
	return &a.City
}

func (c *CompanyRecord) name() *string {
	if c == nil {
		return nil
	}
	return &c.Name
}

// Normalize maps one upstream record into a User.
func Normalize(r Record) (User, error) {
	u, err := NewUser(Fields{
		ID:       r.ID,
		Name:     r.Name,
		Email:    OrDefault(r.Email, ""),
		Phone:    OrDefault(r.Phone, ""),
		Website:  OrDefault(r.Website, ""),
		City:     OrDefault(r.Address.city(), CityUnavailable),
		Company:  OrDefault(r.Company.name(), CompanyUnavailable),
		Username: OrDefault(r.Username, ""),
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: id=%d: %w", ErrInvalidRecord, r.ID, err)
	}
	return u, nil
}

// NormalizeAll maps records in order. One bad record or a repeated ID
// rejects the whole collection.
func NormalizeAll(records []Record) ([]User, error) {
	users := make([]User, 0, len(records))
	seen := make(map[int]struct{}, len(records))

	for _, r := range records {
		u, err := Normalize(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[u.ID()]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, u.ID())
		}
		seen[u.ID()] = struct{}{}
		users = append(users, u)
	}

	return users, nil
}
