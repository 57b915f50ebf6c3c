package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"birdtag/api/internal/models"
)

const base = "https://store.example/birdtag-media/"

func TestDeleteByURLsMixedExistingAndMissing(t *testing.T) {
	store := newFakeStore(models.MediaRecord{
		FileID:   "f1",
		S3URL:    base + "tmp/a.jpg",
		FileType: models.FileTypeImage,
	})
	blobs := newFakeBlobs("tmp/a.jpg")
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	result := svc.DeleteByURLs(context.Background(), []string{
		base + "tmp/a.jpg",
		base + "tmp/missing.jpg",
	})

	if !reflect.DeepEqual(result.Succeeded, []string{base + "tmp/a.jpg"}) {
		t.Fatalf("Succeeded = %v", result.Succeeded)
	}
	if !reflect.DeepEqual(result.NotFound, []string{base + "tmp/missing.jpg"}) {
		t.Fatalf("NotFound = %v", result.NotFound)
	}
	if len(result.Errored) != 0 {
		t.Fatalf("Errored = %v", result.Errored)
	}
	if result.HasErrors() || result.AllNotFound() {
		t.Fatalf("batch should be an overall success")
	}
	if _, err := store.GetByID(context.Background(), "f1"); err == nil {
		t.Fatalf("record f1 should be gone")
	}
	if blobs.objects["tmp/a.jpg"] {
		t.Fatalf("blob tmp/a.jpg should be gone")
	}
}

func TestDeleteByURLsRemovesThumbnailOnce(t *testing.T) {
	store := newFakeStore(models.MediaRecord{
		FileID:       "f1",
		S3URL:        base + "tmp/a.jpg",
		ThumbnailURL: strPtr(base + "thumbs/a.jpg"),
		FileType:     models.FileTypeImage,
	})
	blobs := newFakeBlobs("tmp/a.jpg", "thumbs/a.jpg")
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	result := svc.DeleteByURLs(context.Background(), []string{base + "thumbs/a.jpg"})

	if len(result.Succeeded) != 1 {
		t.Fatalf("result = %+v", result)
	}
	want := []string{"tmp/a.jpg", "thumbs/a.jpg"}
	if !reflect.DeepEqual(blobs.deleted, want) {
		t.Fatalf("deleted = %v, want %v", blobs.deleted, want)
	}
}

func TestDeleteByURLsEqualThumbnailDeletedOnce(t *testing.T) {
	store := newFakeStore(models.MediaRecord{
		FileID:       "f1",
		S3URL:        base + "tmp/a.jpg",
		ThumbnailURL: strPtr(base + "tmp/a.jpg"),
		FileType:     models.FileTypeImage,
	})
	blobs := newFakeBlobs("tmp/a.jpg")
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	svc.DeleteByURLs(context.Background(), []string{base + "tmp/a.jpg"})

	if len(blobs.deleted) != 1 {
		t.Fatalf("expected a single blob delete, got %v", blobs.deleted)
	}
}

func TestDeleteByURLsSecondCallIsNotAnError(t *testing.T) {
	store := newFakeStore(models.MediaRecord{
		FileID: "f1",
		S3URL:  base + "tmp/a.jpg",
	})
	blobs := newFakeBlobs("tmp/a.jpg")
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	first := svc.DeleteByURLs(context.Background(), []string{base + "tmp/a.jpg"})
	second := svc.DeleteByURLs(context.Background(), []string{base + "tmp/a.jpg"})

	if len(first.Succeeded) != 1 {
		t.Fatalf("first = %+v", first)
	}
	if second.HasErrors() {
		t.Fatalf("second delete must not error: %+v", second)
	}
	if len(second.NotFound) != 1 {
		t.Fatalf("second delete should report not found: %+v", second)
	}
}

func TestDeleteByURLsAbsentBlobIsSuccess(t *testing.T) {
	// record exists, its blob was already removed out of band
	store := newFakeStore(models.MediaRecord{
		FileID: "f1",
		S3URL:  base + "tmp/gone.jpg",
	})
	blobs := newFakeBlobs()
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	result := svc.DeleteByURLs(context.Background(), []string{base + "tmp/gone.jpg"})

	if len(result.Succeeded) != 1 || result.HasErrors() {
		t.Fatalf("result = %+v", result)
	}
}

func TestDeleteByURLsBlobFailureBucketsErrored(t *testing.T) {
	store := newFakeStore(
		models.MediaRecord{FileID: "f1", S3URL: base + "tmp/a.jpg"},
		models.MediaRecord{FileID: "f2", S3URL: base + "tmp/b.jpg"},
	)
	blobs := newFakeBlobs("tmp/a.jpg", "tmp/b.jpg")
	blobs.delErr = map[string]error{"tmp/a.jpg": errors.New("backend down")}
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	result := svc.DeleteByURLs(context.Background(), []string{
		base + "tmp/a.jpg",
		base + "tmp/b.jpg",
	})

	if !reflect.DeepEqual(result.Errored, []string{base + "tmp/a.jpg"}) {
		t.Fatalf("Errored = %v", result.Errored)
	}
	// failure on one item never blocks the next
	if !reflect.DeepEqual(result.Succeeded, []string{base + "tmp/b.jpg"}) {
		t.Fatalf("Succeeded = %v", result.Succeeded)
	}
}

func TestDeleteByURLsRecordDeleteFailure(t *testing.T) {
	store := newFakeStore(models.MediaRecord{FileID: "f1", S3URL: base + "tmp/a.jpg"})
	store.deleteErr = errors.New("write failed")
	blobs := newFakeBlobs("tmp/a.jpg")
	svc := NewDeleteService(store, blobs, zerolog.Nop())

	result := svc.DeleteByURLs(context.Background(), []string{base + "tmp/a.jpg"})

	if !result.HasErrors() {
		t.Fatalf("expected errored bucket, got %+v", result)
	}
}
