package devserver

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchTemplate reloads the index template whenever it is written. esbuild only watches
// files in the module graph, which the template is not part of.
func (s *Server) watchTemplate() error {
	cfg := s.pipeline.Config()
	if cfg.IndexTemplate == "" {
		return nil
	}

	path, err := filepath.Abs(filepath.Join(cfg.Root, cfg.IndexTemplate))
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// editors often replace files, so watch the directory rather than the file
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go s.runTemplateWatcher(watcher, path)
	return nil
}

func (s *Server) runTemplateWatcher(watcher *fsnotify.Watcher, path string) {
	log := s.opts.Logger

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}

			if err := s.pipeline.LoadTemplate(); err != nil {
				log.Error().Err(err).Str("file", path).Msg("Failed to reload index template")
				continue
			}
			log.Info().Str("file", path).Msg("Reloaded index template")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}
