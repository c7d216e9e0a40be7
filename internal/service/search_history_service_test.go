package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

// historyStoreStub keeps entries newest first and trims like the repository.
type historyStoreStub struct {
	entries []models.SearchHistory
}

func (s *historyStoreStub) List(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	out := []models.SearchHistory{}
	for _, e := range s.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *historyStoreStub) Add(ctx context.Context, entry *models.SearchHistory, keep int) error {
	s.entries = append([]models.SearchHistory{*entry}, s.entries...)
	if len(s.entries) > keep {
		s.entries = s.entries[:keep]
	}
	return nil
}

func TestSearchHistoryServiceKeepsNewestN(t *testing.T) {
	store := &historyStoreStub{}
	svc := NewSearchHistoryService(store, nil, 3)
	clock := int64(100)
	svc.now = func() time.Time { clock++; return time.Unix(clock, 0) }
	ctx := context.Background()

	for _, q := range []string{"chair", "lamp", "table", " sofa "} {
		require.NoError(t, svc.Add(ctx, "u1", dto.AddSearchRequest{Query: q}))
	}

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "sofa", items[0].Query)
	assert.Equal(t, "lamp", items[2].Query)
}

func TestSearchHistoryServiceRejectsBlankQuery(t *testing.T) {
	svc := NewSearchHistoryService(&historyStoreStub{}, nil, 0)
	err := svc.Add(context.Background(), "u1", dto.AddSearchRequest{Query: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
