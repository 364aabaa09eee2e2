package media

import (
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxStemLen  = 40
	maxExtLen   = 10
	tokenLen    = 6
	tokenChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
	stampLayout = "20060102150405"
)

func GalleryPrefix(clinicID uuid.UUID) string {
	return fmt.Sprintf("images/hospital/%s/hospitals/", clinicID)
}

func ThumbnailPrefix(clinicID uuid.UUID) string {
	return fmt.Sprintf("images/hospital/%s/thumbnail/", clinicID)
}

func DoctorPrefix(clinicID uuid.UUID) string {
	return fmt.Sprintf("images/doctors/%s/", clinicID)
}

// GenerateFileName builds "{yyyyMMddHHmmss}_{token}_{stem}{.ext}" from the
// original upload name.
func GenerateFileName(original string, now time.Time, token string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	stem = sanitize(stem, func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
	})
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}
	if stem == "" {
		stem = "file"
	}

	ext = sanitize(strings.ToLower(strings.TrimPrefix(ext, ".")), func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
	})
	if len(ext) > maxExtLen {
		ext = ext[:maxExtLen]
	}
	if ext != "" {
		ext = "." + ext
	}

	return fmt.Sprintf("%s_%s_%s%s", now.Format(stampLayout), token, stem, ext)
}

func sanitize(s string, keep func(rune) bool) string {
	var b strings.Builder
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// randomToken returns tokenLen characters from tokenChars.
func randomToken() string {
	buf := make([]byte, tokenLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = tokenChars[int(b)%len(tokenChars)]
	}
	return string(buf)
}
