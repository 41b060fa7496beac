package s3x

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	s := &service{bucket: "dreamstudio-media"}

	key := s.BuildKey("user-1", "ver-2", ".jpg")
	assert.Equal(t, "verifications/user-1/ver-2/photo.jpg", key)
}

func TestURIRoundTrip(t *testing.T) {
	s := &service{bucket: "dreamstudio-media"}

	uri := s.BuildURI("verifications/u/v/photo.png")
	assert.Equal(t, "s3://dreamstudio-media/verifications/u/v/photo.png", uri)
	assert.Equal(t, "verifications/u/v/photo.png", s.ParseURI(uri))
}

func TestParseURIWrongBucket(t *testing.T) {
	s := &service{bucket: "dreamstudio-media"}

	assert.Equal(t, "", s.ParseURI("s3://other-bucket/verifications/u/v/photo.png"))
	assert.Equal(t, "", s.ParseURI("https://example.com/photo.png"))
}
