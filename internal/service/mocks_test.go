package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/repository"
)

type mockAdminRepo struct {
	mock.Mock
}

func (m *mockAdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdminRepo) List(ctx context.Context) ([]model.AdminListing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AdminListing), args.Error(1)
}

func (m *mockAdminRepo) Create(ctx context.Context, userID string, createdBy *string) (*model.AdminUser, error) {
	args := m.Called(ctx, userID, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminUser), args.Error(1)
}

func (m *mockAdminRepo) GrantBootstrap(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdminRepo) Delete(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Upsert(ctx context.Context, params model.UpsertUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockLoginSessionRepo struct {
	mock.Mock
}

func (m *mockLoginSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.LoginSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginSession), args.Error(1)
}

func (m *mockLoginSessionRepo) Create(ctx context.Context, params model.CreateLoginSessionParams) (*model.LoginSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginSession), args.Error(1)
}

func (m *mockLoginSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockLoginSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) List(ctx context.Context) ([]model.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, createdBy string, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, createdBy, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, params model.UpdateSessionParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockTopicRepo struct {
	mock.Mock
}

func (m *mockTopicRepo) List(ctx context.Context) ([]model.Topic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Topic), args.Error(1)
}

func (m *mockTopicRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Topic, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Topic), args.Error(1)
}

func (m *mockTopicRepo) Create(ctx context.Context, params model.CreateTopicParams) (*model.Topic, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Topic), args.Error(1)
}

func (m *mockTopicRepo) Update(ctx context.Context, id string, patch model.TopicPatch) (bool, error) {
	args := m.Called(ctx, id, patch)
	return args.Bool(0), args.Error(1)
}

func (m *mockTopicRepo) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockTopicRepo) MarkConverted(ctx context.Context, id, sessionID string) (bool, error) {
	args := m.Called(ctx, id, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTopicRepo) WithTx(tx *sqlx.Tx) repository.TopicRepository {
	return m
}

type mockVoteRepo struct {
	mock.Mock
}

func (m *mockVoteRepo) ListByUser(ctx context.Context, userID string) ([]model.Vote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vote), args.Error(1)
}

func (m *mockVoteRepo) Create(ctx context.Context, topicID, userID string) (*model.Vote, error) {
	args := m.Called(ctx, topicID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vote), args.Error(1)
}

func (m *mockVoteRepo) Delete(ctx context.Context, topicID, userID string) (bool, error) {
	args := m.Called(ctx, topicID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVoteRepo) WithTx(tx *sqlx.Tx) repository.VoteRepository {
	return m
}

// fakeTx runs fn without a real transaction and records the outcome.
type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	f.err = fn(nil)
	return f.err
}

func adminServiceWith(adminID string) (*AdminService, *mockAdminRepo, *mockUserRepo) {
	adminRepo := new(mockAdminRepo)
	userRepo := new(mockUserRepo)
	adminRepo.On("IsAdmin", mock.Anything, adminID).Return(true, nil).Maybe()
	adminRepo.On("IsAdmin", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	return NewAdminService(adminRepo, userRepo), adminRepo, userRepo
}
