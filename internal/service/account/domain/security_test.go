package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecurityStateLockout(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := DefaultLockoutPolicy()
	var s SecurityState

	for i := 1; i < p.Threshold; i++ {
		assert.False(t, s.RecordFailure(now, p))
		assert.False(t, s.IsLockedOut(now))
	}
	assert.True(t, s.RecordFailure(now, p), "fifth failure locks")
	assert.True(t, s.IsLockedOut(now))
	assert.True(t, s.IsLockedOut(now.Add(29*time.Minute)))
	assert.False(t, s.IsLockedOut(now.Add(30*time.Minute)))

	// 锁定期内继续失败不会延长锁定
	until := *s.LockoutUntil
	assert.False(t, s.RecordFailure(now.Add(time.Minute), p))
	assert.Equal(t, until, *s.LockoutUntil)
}

func TestSecurityStateSuccessResets(t *testing.T) {
	now := time.Now()
	p := DefaultLockoutPolicy()
	var s SecurityState
	for i := 0; i < 4; i++ {
		s.RecordFailure(now, p)
	}
	s.RecordSuccess()
	assert.Zero(t, s.FailedAttempts)
	assert.Nil(t, s.LockoutUntil)

	for i := 0; i < 5; i++ {
		s.RecordFailure(now, p)
	}
	assert.True(t, s.IsLockedOut(now))
	s.RecordSuccess()
	assert.False(t, s.IsLockedOut(now))
}

func TestSecurityStateExpiredLockoutStartsOver(t *testing.T) {
	now := time.Now()
	p := LockoutPolicy{Threshold: 2, Duration: time.Minute}
	var s SecurityState
	s.RecordFailure(now, p)
	assert.True(t, s.RecordFailure(now, p))

	later := now.Add(2 * time.Minute)
	assert.False(t, s.RecordFailure(later, p))
	assert.Equal(t, 1, s.FailedAttempts)
	assert.False(t, s.IsLockedOut(later))
}

func TestAddressValidate(t *testing.T) {
	a := &Address{
		Type: AddressShipping, FullName: "Ada", AddressLine1: "1 Main St", City: "Springfield",
		State: "IL", PostalCode: "62701", Country: "US", Phone: "555-0100",
	}
	assert.NoError(t, a.Validate())

	a.City = " "
	assert.ErrorIs(t, a.Validate(), ErrInvalidAddress)

	a.City = "Springfield"
	a.Type = "home"
	assert.ErrorIs(t, a.Validate(), ErrInvalidAddress)
}
