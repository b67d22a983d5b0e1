package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/models"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func TestMembershipRequests(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	userID := createTestUser(t, pool, "applicant@fieldstation.example")
	adminID := createTestAdmin(t, pool, "admin@fieldstation.example")

	req, err := db.CreateMembershipRequest(ctx, pool, userID, "glacier-survey")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipPending, req.Status)
	assert.Nil(t, req.DecidedAt)
	assert.Nil(t, req.DecidedBy)

	t.Run("pending list and count", func(t *testing.T) {
		pending, err := db.ListPendingMembershipRequests(ctx, pool)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, req.ID, pending[0].ID)

		count, err := db.CountPendingMembershipRequests(ctx, pool)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("approve", func(t *testing.T) {
		decided, err := db.DecideMembershipRequest(ctx, pool, req.ID, adminID, models.MembershipApproved)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipApproved, decided.Status)
		require.NotNil(t, decided.DecidedAt)
		require.NotNil(t, decided.DecidedBy)
		assert.Equal(t, adminID, *decided.DecidedBy)

		count, err := db.CountPendingMembershipRequests(ctx, pool)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("second decision is rejected", func(t *testing.T) {
		_, err := db.DecideMembershipRequest(ctx, pool, req.ID, adminID, models.MembershipRejected)
		assert.ErrorIs(t, err, db.ErrMembershipAlreadyDecided)

		// First decision stands.
		got, err := db.GetMembershipRequest(ctx, pool, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipApproved, got.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		other, err := db.CreateMembershipRequest(ctx, pool, userID, "ice-core-archive")
		require.NoError(t, err)

		_, err = db.DecideMembershipRequest(ctx, pool, other.ID, adminID, "maybe")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid membership decision")
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := db.DecideMembershipRequest(ctx, pool, "00000000-0000-0000-0000-000000000000", adminID, models.MembershipApproved)
		assert.ErrorIs(t, err, db.ErrMembershipRequestNotFound)

		_, err = db.GetMembershipRequest(ctx, pool, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, db.ErrMembershipRequestNotFound)
	})
}
