package queue

import (
	"context"
	"fmt"
)

// SetSchemaVersionForTest overwrites the recorded schema version.
func SetSchemaVersionForTest(s *Store, version int) error {
	_, err := s.db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}
