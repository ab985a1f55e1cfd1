package queue

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/google/uuid"
)

// Registry holds in-flight cancellation marks. Marks expire on their own so
// a cancel against a job that died mid-flight cannot pin memory forever.
type Registry struct {
	marks *gocache.Cache
}

func NewRegistry() *Registry {
	return &Registry{
		marks: gocache.New(1*time.Hour, 10*time.Minute),
	}
}

func (r *Registry) MarkCancelled(jobId uuid.UUID) {
	r.marks.Set(jobId.String(), true, gocache.DefaultExpiration)
}

func (r *Registry) IsCancelled(jobId uuid.UUID) bool {
	_, found := r.marks.Get(jobId.String())
	return found
}

func (r *Registry) Clear(jobId uuid.UUID) {
	r.marks.Delete(jobId.String())
}
