package worker

import (
	"context"
	"time"
)

const BackupJobName = "database_backup"

// Backuper copies the database and prunes old copies.
type Backuper interface {
	Run(ctx context.Context) error
}

// RegisterBackup schedules b every interval.
func RegisterBackup(s *Scheduler, b Backuper, interval time.Duration) error {
	_, err := s.Every(BackupJobName, interval, b.Run)
	return err
}
