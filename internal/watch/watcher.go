package watch

import (
    "context"
    "path/filepath"

    "github.com/fsnotify/fsnotify"
    "github.com/sirupsen/logrus"

    "ephemera/internal/config"
)

// Watcher reloads the source list when the sources file changes on disk, so
// new venues take effect without a restart.
type Watcher struct {
    path  string
    apply func([]string)
    log   *logrus.Logger
}

func New(path string, apply func([]string), log *logrus.Logger) *Watcher {
    return &Watcher{path: path, apply: apply, log: log}
}

func (w *Watcher) Start(ctx context.Context) error {
    watcher, err := fsnotify.NewWatcher()
    if err != nil {
        return err
    }
    go func() {
        defer watcher.Close()
        for {
            select {
            case <-ctx.Done():
                return
            case evt := <-watcher.Events:
                if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
                    continue
                }
                if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
                    continue
                }
                w.reload()
            case err := <-watcher.Errors:
                w.log.WithField("error", err.Error()).Warn("sources watcher error")
            }
        }
    }()
    // Watch the directory; editors often replace the file instead of
    // writing it in place.
    return watcher.Add(filepath.Dir(w.path))
}

func (w *Watcher) reload() {
    sources, err := config.LoadSources(w.path)
    if err != nil {
        w.log.WithFields(logrus.Fields{"path": w.path, "error": err.Error()}).Warn("sources reload failed, keeping previous list")
        return
    }
    w.apply(sources)
    w.log.WithField("sources", len(sources)).Info("source list reloaded")
}
