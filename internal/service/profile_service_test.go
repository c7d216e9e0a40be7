package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

type profileStoreStub struct {
	users     map[string]models.User
	stats     models.ProfileStats
	updateErr error
}

func (s *profileStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (s *profileStoreStub) UpdateUsername(ctx context.Context, id, username string) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	user, ok := s.users[id]
	if !ok {
		return false, nil
	}
	user.Username = username
	s.users[id] = user
	return true, nil
}

func (s *profileStoreStub) Stats(ctx context.Context, id string) (*models.ProfileStats, error) {
	stats := s.stats
	return &stats, nil
}

type pictureUploaderStub struct {
	id  string
	err error
}

func (p pictureUploaderStub) UploadPicture(ctx context.Context, picture filestore.Part) (string, error) {
	return p.id, p.err
}

func newProfileFixture() (*ProfileService, *profileStoreStub) {
	store := &profileStoreStub{
		users: map[string]models.User{"user_1": {ID: "user_1", Username: "alice"}},
		stats: models.ProfileStats{ObjectsUploaded: 4, Collections: 2, Favourites: 7},
	}
	return NewProfileService(store, pictureUploaderStub{id: "pic_123"}, nil, nil, nil, 1024), store
}

func TestProfileServiceGet(t *testing.T) {
	svc, _ := newProfileFixture()

	profile, err := svc.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 4, profile.ObjectsUploaded.Value)
	assert.Equal(t, 2, profile.CollectionNumber.Value)
	assert.Equal(t, 7, profile.FavouriteNumber.Value)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProfileServiceUpdateCredentials(t *testing.T) {
	svc, store := newProfileFixture()
	ctx := context.Background()

	require.NoError(t, svc.UpdateCredentials(ctx, "user_1", dto.UpdateCredentialsRequest{Username: "  bob "}))
	assert.Equal(t, "bob", store.users["user_1"].Username)

	assert.ErrorIs(t, svc.UpdateCredentials(ctx, "user_1", dto.UpdateCredentialsRequest{Username: " "}), appErrors.ErrValidation)
	assert.ErrorIs(t, svc.UpdateCredentials(ctx, "ghost", dto.UpdateCredentialsRequest{Username: "carol"}), appErrors.ErrNotFound)

	store.updateErr = &pq.Error{Code: "23505"}
	assert.ErrorIs(t, svc.UpdateCredentials(ctx, "user_1", dto.UpdateCredentialsRequest{Username: "taken"}), appErrors.ErrConflict)
}

func TestProfileServiceUploadPicture(t *testing.T) {
	svc, _ := newProfileFixture()
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\n0000")

	res, err := svc.UploadPicture(ctx, "user_1", png, "me.png")
	require.NoError(t, err)
	assert.Equal(t, "pic_123", res.ID)

	_, err = svc.UploadPicture(ctx, "user_1", []byte("hello"), "me.txt")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.UploadPicture(ctx, "user_1", make([]byte, 2048), "big.png")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	failing := NewProfileService(&profileStoreStub{}, pictureUploaderStub{err: errors.New("down")}, nil, nil, nil, 0)
	_, err = failing.UploadPicture(ctx, "user_1", png, "me.png")
	assert.ErrorIs(t, err, appErrors.ErrRequestFailed)
}
