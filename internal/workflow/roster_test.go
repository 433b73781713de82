package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

func TestRoster_Bounds(t *testing.T) {
	r := NewRoster()
	require.Equal(t, 1, r.Len())

	for i := 1; i < MaxPassengers; i++ {
		require.NoError(t, r.Add())
	}
	assert.Equal(t, MaxPassengers, r.Len())

	err := r.Add()
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Contains(t, err.Error(), "maximum of 6 passengers")
	assert.Equal(t, MaxPassengers, r.Len())

	for r.Len() > 1 {
		require.NoError(t, r.Remove(r.Len()-1))
	}
	err = r.Remove(0)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, 1, r.Len())
}

func TestRoster_RemoveLastPassengerIsWarning(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Update(0, FieldName, "Meera"))
	before := r.Entries()

	err := r.Remove(0)

	assert.True(t, domain.IsWarning(err))
	assert.Equal(t, before, r.Entries())
}

func TestRoster_NewEntryDefaults(t *testing.T) {
	r := NewRoster()
	p := r.Entries()[0]

	assert.Equal(t, domain.GenderMale, p.Gender)
	assert.Equal(t, domain.AgeCategoryAdult, p.AgeCategory)
	assert.Empty(t, p.Name)
	assert.Nil(t, p.SeatNumber)
}

func TestRoster_AgeDerivesCategory(t *testing.T) {
	tests := []struct {
		age  string
		want domain.AgeCategory
	}{
		{"4", domain.AgeCategoryAdult},
		{"5", domain.AgeCategoryChild},
		{"11", domain.AgeCategoryChild},
		{"12", domain.AgeCategoryAdult},
		{"59", domain.AgeCategoryAdult},
		{"60", domain.AgeCategorySenior},
		{"87", domain.AgeCategorySenior},
	}

	for _, tt := range tests {
		t.Run(tt.age, func(t *testing.T) {
			r := NewRoster()
			require.NoError(t, r.Update(0, FieldAge, tt.age))
			assert.Equal(t, tt.want, r.Entries()[0].AgeCategory)
		})
	}
}

func TestRoster_NonNumericAgeKeepsCategory(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Update(0, FieldAgeCategory, string(domain.AgeCategorySenior)))
	require.NoError(t, r.Update(0, FieldAge, "6a"))

	p := r.Entries()[0]
	assert.Equal(t, "6a", p.Age)
	assert.Equal(t, domain.AgeCategorySenior, p.AgeCategory)

	// fractional ages are not truncated to a whole number
	require.NoError(t, r.Update(0, FieldAge, "25.5"))
	p = r.Entries()[0]
	assert.Equal(t, "25.5", p.Age)
	assert.Equal(t, domain.AgeCategorySenior, p.AgeCategory)
}

func TestRoster_LastAgeEditWins(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Update(0, FieldAge, "30"))
	require.NoError(t, r.Update(0, FieldAgeCategory, string(domain.AgeCategorySenior)))
	assert.Equal(t, domain.AgeCategorySenior, r.Entries()[0].AgeCategory)

	// A later age edit overrides the manual choice
	require.NoError(t, r.Update(0, FieldAge, "31"))
	assert.Equal(t, domain.AgeCategoryAdult, r.Entries()[0].AgeCategory)
}

func TestRoster_UpdateErrors(t *testing.T) {
	r := NewRoster()

	err := r.Update(3, FieldName, "Kiran")
	assert.ErrorIs(t, err, domain.ErrPassengerNotFound)

	err = r.Update(0, PassengerField("nationality"), "IN")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestRoster_Validate(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add())
	require.NoError(t, r.Update(0, FieldName, "Anil Kumar"))
	require.NoError(t, r.Update(0, FieldAge, "40"))
	require.NoError(t, r.Update(1, FieldName, "Al"))
	require.NoError(t, r.Update(1, FieldAge, "130"))

	err := r.Validate()
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, NoticePassengerDetails, verr.Notice)
	assert.Equal(t, map[string]string{
		"passengers[1].name": "Name should be at least 3 characters",
		"passengers[1].age":  "Age must be between 1 and 120",
	}, verr.FieldMap())

	require.NoError(t, r.Update(1, FieldName, "Alka"))
	require.NoError(t, r.Update(1, FieldAge, "120"))
	assert.NoError(t, r.Validate())
}

func TestRoster_RemoveShiftsEntries(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add())
	require.NoError(t, r.Add())
	require.NoError(t, r.Update(0, FieldName, "First"))
	require.NoError(t, r.Update(1, FieldName, "Second"))
	require.NoError(t, r.Update(2, FieldName, "Third"))

	require.NoError(t, r.Remove(1))

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Name)
	assert.Equal(t, "Third", entries[1].Name)
}
