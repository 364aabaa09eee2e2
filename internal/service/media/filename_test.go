package media

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		original string
		want     string
	}{
		{"photo.PNG", "20240309140507_abc123_photo.png"},
		{"my clinic (1).jpeg", "20240309140507_abc123_myclinic1.jpeg"},
		{`C:\Users\me\front.jpg`, "20240309140507_abc123_front.jpg"},
		{"../../etc/passwd", "20240309140507_abc123_passwd"},
		{"受付.webp", "20240309140507_abc123_file.webp"},
		{strings.Repeat("a", 60) + ".png", "20240309140507_abc123_" + strings.Repeat("a", 40) + ".png"},
		{"x." + strings.Repeat("b", 15), "20240309140507_abc123_x." + strings.Repeat("b", 10)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateFileName(tt.original, now, "abc123"), tt.original)
	}
}

func TestRandomToken(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok := randomToken()
		assert.Regexp(t, re, tok)
		seen[tok] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestPrefixes(t *testing.T) {
	id := uuid.MustParse("6f1c2a7e-0000-4000-8000-000000000001")

	assert.Equal(t, "images/hospital/6f1c2a7e-0000-4000-8000-000000000001/hospitals/", GalleryPrefix(id))
	assert.Equal(t, "images/hospital/6f1c2a7e-0000-4000-8000-000000000001/thumbnail/", ThumbnailPrefix(id))
	assert.Equal(t, "images/doctors/6f1c2a7e-0000-4000-8000-000000000001/", DoctorPrefix(id))
}
