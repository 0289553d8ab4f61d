package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	store := NewStore()

	code, err := store.Issue("mia@example.com", TypeReset)
	require.NoError(t, err)
	require.Len(t, code, 6)

	assert.False(t, store.Verify("mia@example.com", TypeReset, "000000"), "wrong code must not verify")
	assert.True(t, store.Verify("mia@example.com", TypeReset, code))
	assert.False(t, store.Verify("mia@example.com", TypeReset, code), "codes are single-use")
}

func TestVerifyTypeMismatch(t *testing.T) {
	store := NewStore()

	code, err := store.Issue("mia@example.com", TypeSignup)
	require.NoError(t, err)

	assert.False(t, store.Verify("mia@example.com", TypeReset, code))
	assert.True(t, store.Verify("mia@example.com", TypeSignup, code))
}

func TestIssueReplacesPreviousCode(t *testing.T) {
	store := NewStore()

	first, err := store.Issue("mia@example.com", TypeReset)
	require.NoError(t, err)
	second, err := store.Issue("mia@example.com", TypeReset)
	require.NoError(t, err)

	if first != second {
		assert.False(t, store.Verify("mia@example.com", TypeReset, first))
	}
	assert.True(t, store.Verify("mia@example.com", TypeReset, second))
}

func TestConsumeVerified(t *testing.T) {
	store := NewStore()

	assert.False(t, store.ConsumeVerified("mia@example.com"), "no verification yet")

	code, err := store.Issue("mia@example.com", TypeReset)
	require.NoError(t, err)
	require.True(t, store.Verify("mia@example.com", TypeReset, code))

	assert.True(t, store.ConsumeVerified("mia@example.com"))
	assert.False(t, store.ConsumeVerified("mia@example.com"), "verification is single-use")
}

func TestSignupVerifyDoesNotOpenResetWindow(t *testing.T) {
	store := NewStore()

	code, err := store.Issue("mia@example.com", TypeSignup)
	require.NoError(t, err)
	require.True(t, store.Verify("mia@example.com", TypeSignup, code))

	assert.False(t, store.ConsumeVerified("mia@example.com"))
}
