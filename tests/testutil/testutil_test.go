package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)
}

func TestMockDB_ExpectationsWereMet(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	// No expectations set, should pass
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	assert.NotNil(t, tc.Context)
	assert.NotNil(t, tc.Recorder)
	assert.NotNil(t, tc.Engine)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestTestContext_SetUser(t *testing.T) {
	tc := NewTestContext(t)
	userID := TestUserID()

	tc.SetUser(userID, true)

	val, exists := tc.Context.Get("user_id")
	assert.True(t, exists)
	assert.Equal(t, userID, val)

	staff, exists := tc.Context.Get("is_staff")
	assert.True(t, exists)
	assert.Equal(t, true, staff)
}

func TestNewTestUUID_Deterministic(t *testing.T) {
	a := NewTestUUID("same-seed")
	b := NewTestUUID("same-seed")
	c := NewTestUUID("other-seed")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAssertEventually(t *testing.T) {
	start := time.Now()
	calls := 0

	AssertEventually(t, func() bool {
		calls++
		return calls >= 3
	}, time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, calls, 3)
	assert.Less(t, time.Since(start), time.Second)
}
