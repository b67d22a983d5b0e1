package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func TestCreateTopic(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	ownerID := createTestUser(t, pool, "owner@fieldstation.example")

	topic, err := db.CreateTopic(ctx, pool, "Soil samples, week 12", ownerID, "First batch of results attached below.")
	require.NoError(t, err)

	assert.NotEmpty(t, topic.ID)
	assert.Equal(t, "Soil samples, week 12", topic.Title)
	assert.Equal(t, ownerID, topic.OwnerID)
	assert.EqualValues(t, 0, topic.ViewCount)
	assert.EqualValues(t, 1, topic.MessageCount)

	messages, err := db.GetMessagesForTopic(ctx, pool, topic.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	root := messages[0]
	assert.Nil(t, root.ParentID)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, ownerID, root.AuthorID)
	assert.Equal(t, "First batch of results attached below.", root.Body)
}

func TestGetTopicByID(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	ownerID := createTestUser(t, pool, "owner@fieldstation.example")

	created, err := db.CreateTopic(ctx, pool, "Station maintenance", ownerID, "Generator service is due.")
	require.NoError(t, err)

	t.Run("returns the topic", func(t *testing.T) {
		topic, err := db.GetTopicByID(ctx, pool, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, topic.ID)
		assert.Equal(t, "Station maintenance", topic.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := db.GetTopicByID(ctx, pool, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, db.ErrTopicNotFound)
	})
}

func TestListTopics(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	ownerID := createTestUser(t, pool, "owner@fieldstation.example")

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := db.CreateTopic(ctx, pool, title, ownerID, "body")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // distinct created_at for a stable order
	}

	t.Run("newest first", func(t *testing.T) {
		topics, err := db.ListTopics(ctx, pool, 10, 0)
		require.NoError(t, err)
		require.Len(t, topics, 3)
		assert.Equal(t, "Third", topics[0].Title)
		assert.Equal(t, "First", topics[2].Title)
	})

	t.Run("limit and offset", func(t *testing.T) {
		topics, err := db.ListTopics(ctx, pool, 1, 1)
		require.NoError(t, err)
		require.Len(t, topics, 1)
		assert.Equal(t, "Second", topics[0].Title)
	})
}

func TestListTopicsCreatedSince(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	ownerID := createTestUser(t, pool, "owner@fieldstation.example")

	_, err := db.CreateTopic(ctx, pool, "Recent topic", ownerID, "body")
	require.NoError(t, err)

	t.Run("includes topics after the cutoff", func(t *testing.T) {
		topics, err := db.ListTopicsCreatedSince(ctx, pool, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, topics, 1)
		assert.Equal(t, "Recent topic", topics[0].Title)
	})

	t.Run("excludes topics before the cutoff", func(t *testing.T) {
		topics, err := db.ListTopicsCreatedSince(ctx, pool, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, topics)
	})
}

func TestRecordView(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	ownerID := createTestUser(t, pool, "owner@fieldstation.example")

	topic, err := db.CreateTopic(ctx, pool, "Viewed topic", ownerID, "body")
	require.NoError(t, err)

	t.Run("increments by one per view", func(t *testing.T) {
		updated, err := db.RecordView(ctx, pool, topic.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, updated.ViewCount)

		updated, err = db.RecordView(ctx, pool, topic.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, updated.ViewCount)
	})

	t.Run("concurrent views never lose counts", func(t *testing.T) {
		before, err := db.GetTopicByID(ctx, pool, topic.ID)
		require.NoError(t, err)

		const viewers = 20
		var wg sync.WaitGroup
		errs := make(chan error, viewers)

		for i := 0; i < viewers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := db.RecordView(ctx, pool, topic.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		after, err := db.GetTopicByID(ctx, pool, topic.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ViewCount+viewers, after.ViewCount)
	})

	t.Run("unknown topic", func(t *testing.T) {
		_, err := db.RecordView(ctx, pool, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, db.ErrTopicNotFound)
	})
}
