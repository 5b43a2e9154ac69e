package certstore

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore is the non-Windows stand-in for the machine personal certificate
// store directory layout. It resolves a "subject" name by looking for
// PEM cert/key pairs under a directory, one pair per entry:
//
//	<dir>/<subject>/<friendlyName>.crt
//	<dir>/<subject>/<friendlyName>.key
//
// This mirrors the shape of the Windows store (subject name plus a
// friendly-name-qualified set of entries) without requiring any
// platform-specific cgo or syscalls.
type DirStore struct {
	Dir string
}

// NewDirStore returns a DirStore rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

// FindBySubject implements PersonalStore.
func (s *DirStore) FindBySubject(subject string) ([]Entry, error) {
	subjectDir := filepath.Join(s.Dir, subject)
	files, err := os.ReadDir(subjectDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("certstore: read %s: %w", subjectDir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".crt") {
			continue
		}
		friendlyName := strings.TrimSuffix(f.Name(), ".crt")
		certPath := filepath.Join(subjectDir, f.Name())
		keyPath := filepath.Join(subjectDir, friendlyName+".key")

		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("certstore: load %s/%s: %w", subject, friendlyName, err)
		}
		entries = append(entries, Entry{Cert: cert, FriendlyName: friendlyName})
	}
	return entries, nil
}
