package service

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounceDelay coalesces the burst of write events a single export
// refresh produces into one rebuild.
const debounceDelay = 2 * time.Second

// Rebuilder is anything the watcher can trigger after the data directory
// changes.
type Rebuilder func(ctx context.Context) error

// ExportWatcher watches the export directory and reruns the rebuilders
// after file changes settle.
type ExportWatcher struct {
	dir        string
	timeout    time.Duration
	rebuilders []Rebuilder
	watcher    *fsnotify.Watcher
	stop       chan struct{}
}

// NewExportWatcher starts watching dir. Each rebuild runs with the given
// timeout.
func NewExportWatcher(dir string, timeout time.Duration, rebuilders ...Rebuilder) (*ExportWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &ExportWatcher{
		dir:        dir,
		timeout:    timeout,
		rebuilders: rebuilders,
		watcher:    fsw,
		stop:       make(chan struct{}),
	}

	go w.loop()
	logrus.WithField("dir", dir).Info("Watching export directory")
	return w, nil
}

func (w *ExportWatcher) loop() {
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logrus.WithFields(logrus.Fields{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("Export file changed")
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				fire = debounce.C
			} else {
				if !debounce.Stop() {
					<-debounce.C
				}
				debounce.Reset(debounceDelay)
			}
		case <-fire:
			debounce = nil
			fire = nil
			w.rebuild()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("Export watcher error")
		case <-w.stop:
			return
		}
	}
}

func (w *ExportWatcher) rebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	for _, rebuild := range w.rebuilders {
		if err := rebuild(ctx); err != nil {
			logrus.WithError(err).Error("Rebuild after export change failed")
		}
	}
}

// Close stops watching.
func (w *ExportWatcher) Close() error {
	close(w.stop)
	return w.watcher.Close()
}
