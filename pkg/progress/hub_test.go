package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub(nil, nil, nopLogger{})
	docId := uuid.New()

	ch, release := hub.Subscribe(docId)
	defer release()

	checkpoints := []int{
		constant.ProgressExtracting,
		constant.ProgressChunking,
		constant.ProgressEmbedding,
		constant.ProgressStoring,
		constant.ProgressDone,
	}
	for _, p := range checkpoints {
		hub.Publish(context.Background(), dto.ProgressEvent{
			Type:       constant.EventTypeProgress,
			DocumentId: docId,
			Progress:   p,
		})
	}

	for _, want := range checkpoints {
		select {
		case got := <-ch:
			assert.Equal(t, want, got.Progress)
		case <-time.After(time.Second):
			t.Fatalf("missing checkpoint %d", want)
		}
	}
}

func TestHubLatestSnapshot(t *testing.T) {
	hub := NewHub(nil, nil, nopLogger{})
	docId := uuid.New()

	_, found := hub.Latest(docId)
	assert.False(t, found)

	hub.Publish(context.Background(), dto.ProgressEvent{
		Type:       constant.EventTypeProgress,
		DocumentId: docId,
		Progress:   constant.ProgressChunking,
	})
	hub.Publish(context.Background(), dto.ProgressEvent{
		Type:       constant.EventTypeCompleted,
		DocumentId: docId,
		Progress:   constant.ProgressDone,
		Status:     constant.DocumentStatusCompleted,
	})

	latest, found := hub.Latest(docId)
	require.True(t, found)
	assert.Equal(t, constant.ProgressDone, latest.Progress)
	assert.Equal(t, constant.EventTypeCompleted, latest.Type)
	assert.False(t, latest.Timestamp.IsZero())
}

func TestHubSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(nil, nil, nopLogger{})
	docId := uuid.New()

	_, release := hub.Subscribe(docId)
	defer release()

	done := make(chan struct{})
	go func() {
		// more events than the subscriber buffer holds
		for i := 0; i < 100; i++ {
			hub.Publish(context.Background(), dto.ProgressEvent{
				Type:       constant.EventTypeProgress,
				DocumentId: docId,
				Progress:   i,
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	latest, found := hub.Latest(docId)
	require.True(t, found)
	assert.Equal(t, 99, latest.Progress)
}

func TestHubReleaseStopsDelivery(t *testing.T) {
	hub := NewHub(nil, nil, nopLogger{})
	docId := uuid.New()

	ch, release := hub.Subscribe(docId)
	release()

	hub.Publish(context.Background(), dto.ProgressEvent{
		Type:       constant.EventTypeProgress,
		DocumentId: docId,
		Progress:   constant.ProgressExtracting,
	})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("released subscriber still received an event")
		}
	default:
	}
}

func TestHubForgetDropsSnapshot(t *testing.T) {
	hub := NewHub(nil, nil, nopLogger{})
	docId := uuid.New()

	hub.Publish(context.Background(), dto.ProgressEvent{
		Type:       constant.EventTypeQueued,
		DocumentId: docId,
	})
	hub.Forget(docId)

	_, found := hub.Latest(docId)
	assert.False(t, found)
}
