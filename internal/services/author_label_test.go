package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
)

type fakeHouseholds struct {
	users    map[string]*models.User
	aviaries map[string]*models.Aviary
	err      error
}

func (f *fakeHouseholds) GetUser(_ context.Context, uid string) (*models.User, error) {
	return f.users[uid], f.err
}

func (f *fakeHouseholds) GetAviary(_ context.Context, id string) (*models.Aviary, error) {
	return f.aviaries[id], nil
}

type fakeCaregivers map[string]*models.Caregiver

func (f fakeCaregivers) GetCaregiver(_ context.Context, aviaryID, uid string) (*models.Caregiver, error) {
	return f[aviaryID+"/"+uid], nil
}

func TestResolveAuthorLabel(t *testing.T) {
	households := &fakeHouseholds{
		users: map[string]*models.User{
			"c1": {PartOfAviary: "g1"},
			"c2": {PartOfAviary: "g2"},
		},
		aviaries: map[string]*models.Aviary{
			"g1": {AviaryName: "Sunny Loft", GuardianLabel: "Mum"},
			"g2": {GuardianLabel: "Dad"},
			"g3": {AviaryName: "Perch Place"},
		},
	}
	caregivers := fakeCaregivers{"g1/c1": {Label: "Grandma"}}

	tests := []struct {
		name   string
		caller Caller
		want   string
	}{
		{name: "guardian with label", caller: Caller{UID: "g1", Email: "mum@example.com"}, want: "Mum of Sunny Loft"},
		{name: "guardian of unnamed aviary", caller: Caller{UID: "g2"}, want: "Dad of their Aviary"},
		{name: "guardian falls back to email", caller: Caller{UID: "g3", Email: "g3@example.com"}, want: "g3@example.com of Perch Place"},
		{name: "guardian without anything", caller: Caller{UID: "g4"}, want: "Guardian of their Aviary"},
		{name: "caregiver with label", caller: Caller{UID: "c1", Email: "gran@example.com"}, want: "Grandma of Sunny Loft"},
		{name: "caregiver without record", caller: Caller{UID: "c2"}, want: "Caregiver of their Aviary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAuthorLabel(context.Background(), tt.caller, households, caregivers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveAuthorLabel_LookupError(t *testing.T) {
	boom := errors.New("boom")
	households := &fakeHouseholds{err: boom}

	_, err := ResolveAuthorLabel(context.Background(), Caller{UID: "g1"}, households, fakeCaregivers{})
	assert.ErrorIs(t, err, boom)
}
