package user_test

import (
	"testing"

	"github.com/lllypuk/userdir/internal/domain/errs"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewUser(t *testing.T) {
	t.Run("valid fields", func(t *testing.T) {
		u, err := user.NewUser(user.Fields{
			ID:       1,
			Name:     "Leanne Graham",
			Email:    "Sincere@april.biz",
			City:     "Gwenborough",
			Company:  "Romaguera-Crona",
			Username: "Bret",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, u.ID())
		assert.Equal(t, "Leanne Graham", u.Name())
		assert.Equal(t, "Sincere@april.biz", u.Email())
		assert.Equal(t, "Gwenborough", u.City())
		assert.Equal(t, "Romaguera-Crona", u.Company())
		assert.Equal(t, "Bret", u.Username())
		assert.False(t, u.IsZero())
	})

	t.Run("empty city and company get placeholders", func(t *testing.T) {
		u, err := user.NewUser(user.Fields{ID: 2, Name: "Ervin Howell"})

		require.NoError(t, err)
		assert.Equal(t, user.CityUnavailable, u.City())
		assert.Equal(t, user.CompanyUnavailable, u.Company())
	})

	t.Run("rejects non-positive id", func(t *testing.T) {
		_, err := user.NewUser(user.Fields{ID: 0, Name: "x"})
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := user.NewUser(user.Fields{ID: 3, Name: "   "})
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}

func TestUser_Initials(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"two words", "Leanne Graham", "LG"},
		{"three words keeps first two", "Mrs. Dennis Schulist", "MD"},
		{"single word", "clementine", "C"},
		{"extra spaces", "  Kurtis   Weissnat ", "KW"},
		{"accented", "élodie durand", "ÉD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := user.NewUser(user.Fields{ID: 1, Name: tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, u.Initials())
		})
	}
}

func TestUser_AvatarColor(t *testing.T) {
	a, err := user.NewUser(user.Fields{ID: 1, Name: "a"})
	require.NoError(t, err)
	b, err := user.NewUser(user.Fields{ID: 9, Name: "b"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.AvatarColor())
	assert.Equal(t, a.AvatarColor(), b.AvatarColor(), "palette wraps by id")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "def", user.OrDefault(nil, "def"))
	assert.Equal(t, "def", user.OrDefault(strPtr(""), "def"))
	assert.Equal(t, "value", user.OrDefault(strPtr("value"), "def"))
}

func TestNormalize(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		r := user.Record{
			ID:       1,
			Name:     "Leanne Graham",
			Email:    strPtr("Sincere@april.biz"),
			Phone:    strPtr("1-770-736-8031 x56442"),
			Website:  strPtr("hildegard.org"),
			Username: strPtr("Bret"),
			Address:  &user.AddressRecord{City: "Gwenborough"},
			Company:  &user.CompanyRecord{Name: "Romaguera-Crona"},
		}

		u, err := user.Normalize(r)

		require.NoError(t, err)
		assert.Equal(t, "1-770-736-8031 x56442", u.Phone())
		assert.Equal(t, "hildegard.org", u.Website())
		assert.Equal(t, "Gwenborough", u.City())
		assert.Equal(t, "Romaguera-Crona", u.Company())
	})

	t.Run("absent nested objects fall back", func(t *testing.T) {
		u, err := user.Normalize(user.Record{ID: 2, Name: "Ervin Howell"})

		require.NoError(t, err)
		assert.Equal(t, user.CityUnavailable, u.City())
		assert.Equal(t, user.CompanyUnavailable, u.Company())
		assert.Empty(t, u.Email())
		assert.Empty(t, u.Username())
	})

	t.Run("empty nested values fall back", func(t *testing.T) {
		u, err := user.Normalize(user.Record{
			ID:      3,
			Name:    "Clementine Bauch",
			Address: &user.AddressRecord{},
			Company: &user.CompanyRecord{},
		})

		require.NoError(t, err)
		assert.Equal(t, user.CityUnavailable, u.City())
		assert.Equal(t, user.CompanyUnavailable, u.Company())
	})

	t.Run("invalid record", func(t *testing.T) {
		_, err := user.Normalize(user.Record{ID: 4})

		require.ErrorIs(t, err, user.ErrInvalidRecord)
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}

func TestNormalizeAll(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		users, err := user.NormalizeAll([]user.Record{
			{ID: 3, Name: "c"},
			{ID: 1, Name: "a"},
			{ID: 2, Name: "b"},
		})

		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []int{3, 1, 2}, []int{users[0].ID(), users[1].ID(), users[2].ID()})
	})

	t.Run("empty input", func(t *testing.T) {
		users, err := user.NormalizeAll(nil)

		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("duplicate id rejects collection", func(t *testing.T) {
		users, err := user.NormalizeAll([]user.Record{
			{ID: 1, Name: "a"},
			{ID: 1, Name: "b"},
		})

		require.ErrorIs(t, err, user.ErrDuplicateID)
		assert.Nil(t, users)
	})

	t.Run("one invalid record rejects collection", func(t *testing.T) {
		users, err := user.NormalizeAll([]user.Record{
			{ID: 1, Name: "a"},
			{ID: 2, Name: ""},
		})

		require.ErrorIs(t, err, user.ErrInvalidRecord)
		assert.Nil(t, users)
	})
}

func TestCollection(t *testing.T) {
	users, err := user.NormalizeAll([]user.Record{
		{ID: 10, Name: "a"},
		{ID: 20, Name: "b"},
	})
	require.NoError(t, err)

	c := user.NewCollection(users, 7)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(7), c.Version())
	assert.Equal(t, users, c.All())

	got, err := c.ByID(20)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name())

	_, err = c.ByID(30)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
