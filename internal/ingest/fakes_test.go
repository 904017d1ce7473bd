package ingest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"briefapi/internal/model"
	"briefapi/internal/repository"
	"briefapi/internal/storage"
)

type interval struct {
	start, end time.Time
}

// recordingStore is an in-memory ObjectStore that records when each Put ran.
type recordingStore struct {
	mu       sync.Mutex
	putDelay time.Duration
	buckets  map[string]bool
	objects  map[string][]byte
	puts     []interval
	keys     []string
}

func newRecordingStore(putDelay time.Duration) *recordingStore {
	return &recordingStore{
		putDelay: putDelay,
		buckets:  map[string]bool{},
		objects:  map[string][]byte{},
	}
}

func (s *recordingStore) BucketExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[name], nil
}

func (s *recordingStore) CreateBucket(_ context.Context, name string, _ storage.BucketOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[name] = true
	return nil
}

func (s *recordingStore) Put(_ context.Context, bucket, key string, data []byte, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	start := time.Now()
	time.Sleep(s.putDelay)
	end := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = append([]byte(nil), data...)
	s.puts = append(s.puts, interval{start: start, end: end})
	s.keys = append(s.keys, key)
	return storage.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data)), ContentType: opt.ContentType}, nil
}

func (s *recordingStore) PublicURL(bucket, key string) string {
	return "http://objects.local/" + bucket + "/" + key
}

func (s *recordingStore) Delete(_ context.Context, bucket string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, bucket+"/"+k)
	}
	return nil
}

var (
	_ storage.ObjectStore        = (*recordingStore)(nil)
	_ repository.MediaRepository = (*memoryRepo)(nil)
)

// memoryRepo is an in-memory MediaRepository.
type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Media
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[string]*model.Media{}}
}

func (r *memoryRepo) Create(_ context.Context, m *model.Media) (*model.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *m
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt
	r.rows[out.ID] = &out
	cp := out
	return &cp, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*model.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepo) List(_ context.Context, pq repository.PageQuery) (*repository.PageResult[model.Media], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.Media, 0, len(r.rows))
	for _, m := range r.rows {
		items = append(items, *m)
	}
	return &repository.PageResult[model.Media]{Items: items, Total: len(items)}, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memoryRepo) SetThumbnail(_ context.Context, id, thumbnailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.ThumbnailID = &thumbnailID
	return nil
}
