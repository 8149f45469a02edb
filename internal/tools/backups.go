package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/mason/internal/backup"
)

// ListBackupsInput parameters for the list_backups tool.
type ListBackupsInput struct {
	Path string `json:"path" jsonschema:"description=Only show backups of this file (all files when empty)"`
}

// BackupEntry is one backup record as shown to the model.
type BackupEntry struct {
	ID        string `json:"id"`
	FilePath  string `json:"file_path"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
	Size      int64  `json:"size"`
}

type listBackupsToolImpl struct {
	store *backup.Store
}

func (t *listBackupsToolImpl) execute(ctx context.Context, input *ListBackupsInput) ([]BackupEntry, error) {
	var (
		backups []backup.Backup
		err     error
	)
	if input.Path != "" {
		backups, err = t.store.List(input.Path)
	} else {
		backups, err = t.store.ListAll()
	}
	if err != nil {
		return nil, err
	}

	entries := make([]BackupEntry, 0, len(backups))
	for _, b := range backups {
		entries = append(entries, BackupEntry{
			ID:        b.ID,
			FilePath:  b.FilePath,
			Timestamp: b.Timestamp.Format(time.RFC3339),
			Reason:    b.Reason,
			Size:      b.Size,
		})
	}
	return entries, nil
}

// NewListBackupsTool creates the list_backups tool.
func NewListBackupsTool(store *backup.Store) (tool.InvokableTool, error) {
	impl := &listBackupsToolImpl{store: store}
	return utils.InferTool("list_backups", "List file backups taken before destructive operations", impl.execute)
}

// RestoreBackupInput parameters for the restore_backup tool.
type RestoreBackupInput struct {
	ID string `json:"id" jsonschema:"required,description=Backup ID to restore"`
}

type restoreBackupToolImpl struct {
	store *backup.Store
}

func (t *restoreBackupToolImpl) execute(ctx context.Context, input *RestoreBackupInput) (string, error) {
	b, err := t.store.Get(input.ID)
	if err != nil {
		return "", err
	}
	if err := t.store.Restore(input.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Restored %s from backup %s", b.FilePath, b.ID), nil
}

// NewRestoreBackupTool creates the restore_backup tool.
func NewRestoreBackupTool(store *backup.Store) (tool.InvokableTool, error) {
	impl := &restoreBackupToolImpl{store: store}
	return utils.InferTool("restore_backup", "Restore a file from a previous backup", impl.execute)
}
