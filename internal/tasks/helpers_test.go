package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamstudio/backend/internal/platform/openai"
)

type fakeAI struct {
	jsonOut    map[string]any
	jsonErr    error
	imageOut   map[string]any
	imageErr   error
	jsonCalls  int
	imageCalls int
	lastImages []openai.ImageInput
}

func (f *fakeAI) GenerateJSON(_ context.Context, _ string, _ string, _ string, _ map[string]any) (map[string]any, error) {
	f.jsonCalls++
	return f.jsonOut, f.jsonErr
}

func (f *fakeAI) GenerateJSONWithImages(_ context.Context, _ string, _ string, images []openai.ImageInput, _ string, _ map[string]any) (map[string]any, error) {
	f.imageCalls++
	f.lastImages = images
	return f.imageOut, f.imageErr
}

func (f *fakeAI) Model() string { return "test-model" }

type fakeStorage struct {
	existing map[string]bool
}

func (f *fakeStorage) BuildKey(userID, verificationID, ext string) string {
	return fmt.Sprintf("verifications/%s/%s/photo%s", userID, verificationID, ext)
}

func (f *fakeStorage) BuildURI(key string) string { return "s3://test-bucket/" + key }

func (f *fakeStorage) ParseURI(uri string) string {
	if !strings.HasPrefix(uri, "s3://test-bucket/") {
		return ""
	}
	return strings.TrimPrefix(uri, "s3://test-bucket/")
}

func (f *fakeStorage) PresignPut(_ context.Context, key, _ string) (string, error) {
	return "https://upload.test/" + key, nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string) (string, error) {
	return "https://view.test/" + key, nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	return f.existing[key], nil
}

type enqueuedTask struct {
	name    string
	payload map[string]any
}

type recorderScheduler struct {
	enqueued []enqueuedTask
}

func (r *recorderScheduler) Enqueue(_ context.Context, name string, payload map[string]any) error {
	r.enqueued = append(r.enqueued, enqueuedTask{name: name, payload: payload})
	return nil
}

func (r *recorderScheduler) Schedule(_ context.Context, _ string, _ string) error { return nil }
