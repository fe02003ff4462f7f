package eventsubscribers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ely.by/skinbox/internal/dispatcher"
	"ely.by/skinbox/internal/identity"
	"ely.by/skinbox/internal/textures"
)

type pingableMock struct {
	mock.Mock
}

func (p *pingableMock) Ping(ctx context.Context) error {
	return p.Called(ctx).Error(0)
}

func TestStorageChecker(t *testing.T) {
	t.Run("no error", func(t *testing.T) {
		p := &pingableMock{}
		p.On("Ping", mock.Anything).Return(nil)

		checker := StorageChecker(p)
		assert.Nil(t, checker(context.Background()))
	})

	t.Run("with error", func(t *testing.T) {
		err := errors.New("mock error")
		p := &pingableMock{}
		p.On("Ping", mock.Anything).Return(err)

		checker := StorageChecker(p)
		assert.Equal(t, err, checker(context.Background()))
	})

	t.Run("context timeout", func(t *testing.T) {
		p := &pingableMock{}
		waitChan := make(chan time.Time, 1)
		p.On("Ping", mock.Anything).WaitUntil(waitChan).Return(nil)

		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()

		checker := StorageChecker(p)
		assert.EqualError(t, checker(ctx), "check timeout")
		close(waitChan)
	})
}

func TestStorageWriteErrorChecker(t *testing.T) {
	writeErr := &textures.StorageWriteError{Kind: textures.KindSkin, Identity: "steve", Err: errors.New("disk is full")}

	t.Run("empty state", func(t *testing.T) {
		d := dispatcher.New()
		checker := StorageWriteErrorChecker(d, time.Millisecond)
		assert.Nil(t, checker(context.Background()))
	})

	t.Run("when a storage error occurred", func(t *testing.T) {
		d := dispatcher.New()
		checker := StorageWriteErrorChecker(d, time.Second)
		d.Emit("uploads:after_store", "steve", textures.KindSkin, int64(0), writeErr)
		assert.Equal(t, writeErr, checker(context.Background()))
	})

	t.Run("ignore validation errors", func(t *testing.T) {
		d := dispatcher.New()
		checker := StorageWriteErrorChecker(d, time.Second)
		d.Emit("uploads:after_store", "", textures.KindSkin, int64(0), &identity.InvalidIdentityError{Reason: "username is required"})
		assert.Nil(t, checker(context.Background()))
	})

	t.Run("reset after successful upload", func(t *testing.T) {
		d := dispatcher.New()
		checker := StorageWriteErrorChecker(d, time.Second)
		d.Emit("uploads:after_store", "steve", textures.KindSkin, int64(0), writeErr)
		d.Emit("uploads:after_store", "steve", textures.KindSkin, int64(10), nil)
		assert.Nil(t, checker(context.Background()))
	})

	t.Run("should reset value after passed duration", func(t *testing.T) {
		d := dispatcher.New()
		checker := StorageWriteErrorChecker(d, 20*time.Millisecond)
		d.Emit("uploads:after_store", "steve", textures.KindSkin, int64(0), writeErr)
		assert.Equal(t, writeErr, checker(context.Background()))
		time.Sleep(40 * time.Millisecond)
		assert.Nil(t, checker(context.Background()))
	})
}

func TestGalleryReadErrorChecker(t *testing.T) {
	t.Run("when an error occurred", func(t *testing.T) {
		d := dispatcher.New()
		checker := GalleryReadErrorChecker(d, time.Second)
		err := errors.New("permission denied")
		d.Emit("gallery:after_list", 0, err)
		assert.Equal(t, err, checker(context.Background()))

		d.Emit("gallery:after_list", 3, nil)
		assert.Nil(t, checker(context.Background()))
	})
}
