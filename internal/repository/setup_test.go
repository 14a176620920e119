package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))

	_, err = db.Exec(`TRUNCATE votes, admin_users, login_sessions, sessions, topics, users CASCADE`)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) *model.User {
	t.Helper()

	user, err := NewUserRepository(db.DB).Upsert(context.Background(), model.UpsertUserParams{
		GoogleID: "google-" + email,
		Email:    email,
		Name:     "Test " + email,
	})
	require.NoError(t, err)
	return user
}

func createTestTopic(t *testing.T, db *database.DB, author *model.User, title string) *model.Topic {
	t.Helper()

	topic, err := NewTopicRepository(db.DB).Create(context.Background(), model.CreateTopicParams{
		SubmitTopicParams: model.SubmitTopicParams{
			Title:       title,
			Description: "About " + title,
		},
		UserID:    author.ID,
		UserName:  author.Name,
		UserEmail: author.Email,
	})
	require.NoError(t, err)
	return topic
}

func listedTopic(t *testing.T, repo TopicRepository, id string) model.Topic {
	t.Helper()

	topics, err := repo.List(context.Background())
	require.NoError(t, err)
	for _, topic := range topics {
		if topic.ID == id {
			return topic
		}
	}
	require.FailNow(t, "topic not listed", id)
	return model.Topic{}
}

func listedSession(t *testing.T, repo SessionRepository, id string) model.Session {
	t.Helper()

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	for _, session := range sessions {
		if session.ID == id {
			return session
		}
	}
	require.FailNow(t, "session not listed", id)
	return model.Session{}
}
