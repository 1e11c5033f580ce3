package book

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	t.Run("success", func(t *testing.T) {
		want := Draft{Title: "Dune", Author: "Frank Herbert", CoverURL: DefaultCoverURL, Tags: []string{"sci-fi"}, Status: StatusWishlist}
		mockRepo.EXPECT().Add(gomock.Any(), want).Return(NewBook(1, want, "2024-06-01"), nil)

		b, err := service.Create(context.Background(), Draft{Title: " Dune ", Author: "Frank Herbert", Tags: []string{"sci-fi", "sci-fi"}})

		assert.NoError(t, err)
		assert.Equal(t, 1, b.ID)
	})

	t.Run("validation error never reaches the store", func(t *testing.T) {
		_, err := service.Create(context.Background(), Draft{Title: "", Author: "x", Rating: intPtr(7)})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Details, 2)
	})

	t.Run("store error", func(t *testing.T) {
		mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(Book{}, context.DeadlineExceeded)

		_, err := service.Create(context.Background(), Draft{Title: "a", Author: "b"})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestService_CreateMirrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockMirror := NewMockMirror(ctrl)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	service := NewService(mockRepo, WithMirror(mockMirror, time.Second), WithLogger(logger))

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(Book{ID: 5, Title: "Dune", Author: "Frank Herbert"}, nil)
		mockMirror.EXPECT().CreateBook(gomock.Any(), "Dune", "Frank Herbert").Return(101, nil)

		b, err := service.Create(context.Background(), Draft{Title: "Dune", Author: "Frank Herbert"})
		service.Wait()

		require.NoError(t, err)
		assert.Equal(t, 5, b.ID)
		assert.Contains(t, logs.String(), "remote_id=101")
	})

	t.Run("failure leaves the local book alone", func(t *testing.T) {
		mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(Book{ID: 6, Title: "Emma", Author: "Jane Austen"}, nil)
		mockMirror.EXPECT().CreateBook(gomock.Any(), "Emma", "Jane Austen").Return(0, errors.New("connection refused"))

		b, err := service.Create(context.Background(), Draft{Title: "Emma", Author: "Jane Austen"})
		service.Wait()

		require.NoError(t, err)
		assert.Equal(t, 6, b.ID)
		assert.Contains(t, logs.String(), "mirror create failed")
	})

	t.Run("mirror call has a deadline", func(t *testing.T) {
		mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(Book{ID: 7, Title: "a", Author: "b"}, nil)
		mockMirror.EXPECT().CreateBook(gomock.Any(), "a", "b").DoAndReturn(
			func(ctx context.Context, _, _ string) (int, error) {
				_, ok := ctx.Deadline()
				assert.True(t, ok)
				return 1, nil
			})

		_, err := service.Create(context.Background(), Draft{Title: "a", Author: "b"})
		service.Wait()
		require.NoError(t, err)
	})
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	t.Run("trims fields", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 1, Title: strPtr("Dune")}).Return(Book{ID: 1, Title: "Dune"}, nil)

		b, err := service.Update(context.Background(), Patch{ID: 1, Title: strPtr("  Dune  ")})

		assert.NoError(t, err)
		assert.Equal(t, "Dune", b.Title)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(Book{}, ErrNotFound)

		_, err := service.Update(context.Background(), Patch{ID: 99, Title: strPtr("x")})

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid patch", func(t *testing.T) {
		_, err := service.Update(context.Background(), Patch{ID: 1, Author: strPtr("   ")})

		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("blank tag is rejected before normalizing", func(t *testing.T) {
		_, err := service.Update(context.Background(), Patch{ID: 1, Tags: []string{"   "}})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Details[0].Field, "tags")
	})

	t.Run("empty tag list clears tags", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 1, Tags: []string{}}).Return(Book{ID: 1, Tags: []string{}}, nil)

		b, err := service.Update(context.Background(), Patch{ID: 1, Tags: []string{}})

		require.NoError(t, err)
		assert.Empty(t, b.Tags)
	})
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	mockRepo.EXPECT().Remove(gomock.Any(), 3).Return(nil)
	assert.NoError(t, service.Delete(context.Background(), 3))

	mockRepo.EXPECT().Remove(gomock.Any(), 4).Return(ErrNotFound)
	assert.ErrorIs(t, service.Delete(context.Background(), 4), ErrNotFound)
}

func TestService_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	mockRepo.EXPECT().List(gomock.Any()).Return(sampleBooks(), nil)
	books, err := service.Search(context.Background(), Query{Q: "sapiens", Statuses: StatusFilter{Finished: true}})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(books))

	mockRepo.EXPECT().List(gomock.Any()).Return(nil, context.Canceled)
	_, err = service.Search(context.Background(), Query{Statuses: AllStatuses()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Tags(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	t.Run("add", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 1, AddTags: []string{" classic "}}).
			Return(Book{ID: 1, Tags: []string{"sci-fi", "classic"}}, nil)

		b, err := service.AddTag(context.Background(), 1, " classic ")

		require.NoError(t, err)
		assert.Equal(t, []string{"sci-fi", "classic"}, b.Tags)
	})

	t.Run("add blank", func(t *testing.T) {
		_, err := service.AddTag(context.Background(), 1, "  ")

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "tag", verr.Details[0].Field)
	})

	t.Run("remove", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 1, RemoveTags: []string{"sci-fi"}}).
			Return(Book{ID: 1, Tags: []string{}}, nil)

		b, err := service.RemoveTag(context.Background(), 1, "sci-fi")

		require.NoError(t, err)
		assert.Empty(t, b.Tags)
	})

	t.Run("unknown book", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 9, AddTags: []string{"x"}}).Return(Book{}, ErrNotFound)

		_, err := service.AddTag(context.Background(), 9, "x")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_TagsAgainstMemoryStore(t *testing.T) {
	store := NewMemoryStore(fixedClock)
	service := NewService(store)
	b, err := service.Create(context.Background(), Draft{Title: "Dune", Author: "Frank Herbert", Tags: []string{"sci-fi"}})
	require.NoError(t, err)

	got, err := service.AddTag(context.Background(), b.ID, "sci-fi")
	require.NoError(t, err)
	assert.Equal(t, []string{"sci-fi"}, got.Tags)

	got, err = service.RemoveTag(context.Background(), b.ID, "fantasy")
	require.NoError(t, err)
	assert.Equal(t, []string{"sci-fi"}, got.Tags)

	got, err = service.RemoveTag(context.Background(), b.ID, "sci-fi")
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestService_Ping(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	assert.NoError(t, NewService(NewMockRepository(ctrl)).Ping(context.Background()))

	type pingRepo struct {
		*MockRepository
		*MockPinger
	}
	pinger := NewMockPinger(ctrl)
	pinger.EXPECT().Ping(gomock.Any()).Return(errors.New("db down"))
	service := NewService(pingRepo{NewMockRepository(ctrl), pinger})

	assert.EqualError(t, service.Ping(context.Background()), "db down")
}
