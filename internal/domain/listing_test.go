package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatus_SoldSetsDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := Listing{Status: ListingAvailable}
	l.ApplyStatus(ListingSold, now)
	require.NotNil(t, l.SoldDate)
	assert.Equal(t, now, *l.SoldDate)
	assert.Equal(t, ListingSold, l.Status)
}

func TestApplyStatus_StaysSoldKeepsDate(t *testing.T) {
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := Listing{Status: ListingSold, SoldDate: &first}
	l.ApplyStatus(ListingSold, first.Add(48*time.Hour))
	assert.Equal(t, first, *l.SoldDate)
}

func TestApplyStatus_LeavingSoldClearsDate(t *testing.T) {
	d := time.Now()
	for _, s := range []string{ListingAvailable, ListingPending} {
		l := Listing{Status: ListingSold, SoldDate: &d}
		l.ApplyStatus(s, time.Now())
		assert.Nil(t, l.SoldDate, s)
	}
}

func TestAdminDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Ruiz", Admin{FirstName: "Ana", LastName: "Ruiz"}.DisplayName())
	assert.Equal(t, "ana@estate.test", Admin{Email: "ana@estate.test"}.DisplayName())
	assert.True(t, Admin{CreatedBy: MainAdminSentinel}.IsMainAdmin())
}
