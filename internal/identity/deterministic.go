package identity

import (
	"path"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// DocumentUUID identifies a content file by its slash-separated source path.
func DocumentUUID(sourcePath string) uuid.UUID {
	return UUID("go-article:document:" + cleanPath(sourcePath))
}

// BuildRecordUUID identifies the build index row for a document path.
func BuildRecordUUID(sourcePath string) uuid.UUID {
	return UUID("go-article:build_record:" + cleanPath(sourcePath))
}

func cleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
