package guest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const tokenFileName = "guest_token"

// Store keeps the device's anonymous identity on disk. The token is
// generated once and reused for every post made from this device; it is
// the only credential for editing those posts later.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Token returns the device token, creating and persisting a fresh one
// on first use. When the directory is unusable it returns "", and the
// caller degrades to read-only behavior.
func (s *Store) Token() string {
	path := filepath.Join(s.dir, tokenFileName)

	if data, err := os.ReadFile(path); err == nil {
		token := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(token); err == nil {
			return token
		}
	}

	token := uuid.New().String()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return ""
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return ""
	}
	return token
}

// Clear forgets the device identity. The next Token call mints a new one.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, tokenFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
