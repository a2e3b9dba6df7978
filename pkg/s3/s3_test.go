package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromURL_AWSFormat(t *testing.T) {
	url := "https://memorial-media.s3.us-east-1.amazonaws.com/media/abc123.jpg"
	assert.Equal(t, "media/abc123.jpg", KeyFromURL(url))
}

func TestKeyFromURL_MinIOFormat(t *testing.T) {
	url := "http://localhost:9000/memorial-media/media/abc123.mp4"
	assert.Equal(t, "media/abc123.mp4", KeyFromURL(url))
}

func TestKeyFromURL_NoMediaSegment(t *testing.T) {
	assert.Equal(t, "", KeyFromURL("https://example.com/other/file.jpg"))
	assert.Equal(t, "", KeyFromURL(""))
}
