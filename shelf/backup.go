package shelf

import (
	"git.tcp.direct/tcp.direct/dirshelf/backup"
	"git.tcp.direct/tcp.direct/dirshelf/dir"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

// Backup syncs the Shelf and archives the Filer's directory to archivePath as a tar.gz.
// For the directory Filer every key is checked to be present in the archive. An archivePath inside
// the Filer's directory is refused with backup.ErrArchiveInsideTree.
func (s *Shelf[V]) Backup(archivePath string) (backup.BackupMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sync(); err != nil {
		return backup.BackupMetadata{}, err
	}
	var keys []string
	if _, isDir := s.filer.(*dir.Filer); isDir {
		var err error
		if keys, err = s.filer.Keys(); err != nil {
			return backup.BackupMetadata{}, ioErr("keys", s.filer.Path(), err)
		}
	}
	meta, err := backup.NewTarGzBackup(s.filer.Path(), archivePath, keys, []byte(s.mode.String()))
	if err != nil {
		return meta, kv.IOError("backup", archivePath, err)
	}
	s.log.Info().Str("archive", meta.Path()).Int("keys", len(keys)).Msg("backup complete")
	return meta, nil
}
