package credentials

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever the dotenv file is written or
// recreated. It blocks until ctx is done. The parent directory is
// watched so editors that replace the file are handled.
func (s *EnvStore) Watch(ctx context.Context) error {
	if s.envFile == "" {
		<-ctx.Done()
		return nil
	}

	path, err := filepath.Abs(s.envFile)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.envFile, err)
	}
	dir := filepath.Dir(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.logger.Debug("fsnotify watching dir", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			if err := s.Reload(); err != nil {
				s.logger.Warn("failed to reload credentials", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
