package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"birdtag/api/internal/models"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/tags"
)

// fakeStore is an in-memory record store whose tag mutations follow the
// same semantics the SQL statements implement, via the tags package.
type fakeStore struct {
	records map[string]*models.MediaRecord // keyed by file id

	writes      int // tag-mutation statements that touched a row
	deleteErr   error
	findErr     error
	tagWriteErr error
}

func newFakeStore(recs ...models.MediaRecord) *fakeStore {
	s := &fakeStore{records: map[string]*models.MediaRecord{}}
	for i := range recs {
		rec := recs[i]
		if rec.Tags == nil {
			rec.Tags = map[string]int{}
		}
		s.records[rec.FileID] = &rec
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, rec models.MediaRecord) error {
	if rec.Tags == nil {
		rec.Tags = map[string]int{}
	}
	s.records[rec.FileID] = &rec
	return nil
}

func (s *fakeStore) FindByURL(_ context.Context, url string) (models.MediaRecord, error) {
	if s.findErr != nil {
		return models.MediaRecord{}, s.findErr
	}
	for _, rec := range s.records {
		if rec.S3URL == url || (rec.ThumbnailURL != nil && *rec.ThumbnailURL == url) {
			return *rec, nil
		}
	}
	return models.MediaRecord{}, repository.ErrMediaNotFound
}

func (s *fakeStore) GetByID(_ context.Context, fileID string) (models.MediaRecord, error) {
	rec, ok := s.records[fileID]
	if !ok {
		return models.MediaRecord{}, repository.ErrMediaNotFound
	}
	return *rec, nil
}

func (s *fakeStore) Delete(_ context.Context, fileID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.records, fileID)
	return nil
}

func (s *fakeStore) SetTagCounts(_ context.Context, fileID string, entries []tags.Entry) error {
	if s.tagWriteErr != nil {
		return s.tagWriteErr
	}
	rec, ok := s.records[fileID]
	if !ok {
		return repository.ErrMediaNotFound
	}
	next, err := tags.Apply(rec.Tags, entries)
	if err != nil {
		return err
	}
	rec.Tags = next
	s.writes++
	return nil
}

func (s *fakeStore) RemoveTagKeys(_ context.Context, fileID string, species []string) (bool, error) {
	if s.tagWriteErr != nil {
		return false, s.tagWriteErr
	}
	rec, ok := s.records[fileID]
	if !ok {
		return false, repository.ErrMediaNotFound
	}
	next, matched := tags.Remove(rec.Tags, species)
	if len(matched) == 0 {
		return false, nil
	}
	rec.Tags = next
	s.writes++
	return true, nil
}

func (s *fakeStore) DecrementTag(_ context.Context, fileID, species string, n int) error {
	rec, ok := s.records[fileID]
	if !ok {
		return repository.ErrMediaNotFound
	}
	next := tags.Decrement(rec.Tags, species, n)
	rec.Tags = next
	s.writes++
	return nil
}

func (s *fakeStore) MarkProcessing(_ context.Context, fileID string) (bool, error) {
	rec, ok := s.records[fileID]
	if !ok {
		return false, repository.ErrMediaNotFound
	}
	if rec.Status != models.MediaStatusPending {
		return false, nil
	}
	rec.Status = models.MediaStatusProcessing
	return true, nil
}

func (s *fakeStore) ListWithAllSpecies(_ context.Context, species []string) ([]models.MediaRecord, error) {
	var out []models.MediaRecord
	for _, rec := range s.records {
		all := true
		for _, sp := range species {
			if _, ok := rec.Tags[sp]; !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeStore) ListWithAnySpecies(_ context.Context, species []string) ([]models.MediaRecord, error) {
	var out []models.MediaRecord
	for _, rec := range s.records {
		if tags.MatchesAny(rec.Tags, species) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// fakeBlobs tracks object deletions and existence checks against a
// fixed bucket layout.
type fakeBlobs struct {
	bucket   string
	objects  map[string]bool
	deleted  []string
	delErr   map[string]error
	existErr error
}

func newFakeBlobs(keys ...string) *fakeBlobs {
	b := &fakeBlobs{bucket: "birdtag-media", objects: map[string]bool{}}
	for _, k := range keys {
		b.objects[k] = true
	}
	return b
}

func (b *fakeBlobs) KeyFromURL(rawURL string) (string, error) {
	return storageKeyFromURL(rawURL, b.bucket)
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	if err := b.delErr[key]; err != nil {
		return err
	}
	// absent objects delete cleanly
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) Exists(_ context.Context, key string) (bool, error) {
	if b.existErr != nil {
		return false, b.existErr
	}
	return b.objects[key], nil
}

func (b *fakeBlobs) UploadKey(filename string) string {
	return "tmp/" + filename
}

func (b *fakeBlobs) PublicURL(key string) string {
	return "https://store.example/" + b.bucket + "/" + key
}

func (b *fakeBlobs) PresignedPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.example/presigned/" + key, nil
}

func storageKeyFromURL(rawURL, bucket string) (string, error) {
	idx := strings.Index(rawURL, "/"+bucket+"/")
	if idx < 0 {
		return "", errors.New("no bucket segment in url")
	}
	return rawURL[idx+len(bucket)+2:], nil
}

type fakeQueue struct {
	classified []string
	err        error
}

func (q *fakeQueue) EnqueueClassify(_ context.Context, fileID string) error {
	if q.err != nil {
		return q.err
	}
	q.classified = append(q.classified, fileID)
	return nil
}

type dispatchCall struct {
	fileID  string
	species []string
	op      Operation
}

type fakeNotifier struct {
	calls chan dispatchCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan dispatchCall, 16)}
}

func (n *fakeNotifier) Dispatch(_ context.Context, rec models.MediaRecord, species []string, op Operation) {
	n.calls <- dispatchCall{fileID: rec.FileID, species: species, op: op}
}

type fakeChannels struct {
	existing    map[string]int // channel name -> subscriber count
	getErr      map[string]error
}

func (c *fakeChannels) GetChannel(_ context.Context, name string) (models.Channel, error) {
	if err := c.getErr[name]; err != nil {
		return models.Channel{}, err
	}
	if _, ok := c.existing[name]; !ok {
		return models.Channel{}, repository.ErrChannelNotFound
	}
	return models.Channel{Name: name}, nil
}

func (c *fakeChannels) CountSubscribers(_ context.Context, name string) (int, error) {
	return c.existing[name], nil
}

type fakePublisher struct {
	published map[string][][]byte
	failOn    string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: map[string][][]byte{}}
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if channel == p.failOn {
		return errors.New("publish failed")
	}
	p.published[channel] = append(p.published[channel], payload)
	return nil
}

func strPtr(s string) *string { return &s }
