package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/db"
)

var ErrTrackCarRequired = errors.New("track and car are required")

type (
	WatcherOption func(*Watcher)
	// Watcher imports CSV files written to a directory. The session key is
	// the file name without the .csv extension.
	Watcher struct {
		dir           string
		db            *db.DB
		watcher       *fsnotify.Watcher
		track         string
		car           string
		autoReference bool
		settle        time.Duration
		onImport      func(ctx context.Context, sessionKey string)
		l             *log.Logger
	}
)

func WithTrackCar(track, car string) WatcherOption {
	return func(w *Watcher) {
		w.track = track
		w.car = car
	}
}

func WithAutoReference(b bool) WatcherOption {
	return func(w *Watcher) {
		w.autoReference = b
	}
}

// WithSettleDelay sets the time a file must be unchanged before it is
// imported.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithOnImport registers a callback invoked after each successful import.
func WithOnImport(f func(ctx context.Context, sessionKey string)) WatcherOption {
	return func(w *Watcher) {
		w.onImport = f
	}
}

func WithWatcherLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) {
		w.l = l
	}
}

// NewWatcher starts watching dir. Events are processed by Run.
func NewWatcher(dir string, d *db.DB, opts ...WatcherOption) (*Watcher, error) {
	ret := &Watcher{
		dir:    dir,
		db:     d,
		settle: 500 * time.Millisecond,
		l:      log.Default().Named("importer.watch"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.track == "" || ret.car == "" {
		return nil, ErrTrackCarRequired
	}
	var err error
	if ret.watcher, err = fsnotify.NewWatcher(); err != nil {
		return nil, err
	}
	if err := ret.watcher.Add(dir); err != nil {
		ret.watcher.Close()
		return nil, err
	}
	return ret, nil
}

// Run imports changed CSV files until ctx is done. A file is imported once
// no further write was seen for the settle delay. Failed imports are logged.
//
//nolint:gocognit // event loop
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()
	w.l.Info("watching for telemetry files", log.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			w.l.Info("context done, stopping watcher")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.l.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if !isCSV(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != fsnotify.Create &&
				event.Op&fsnotify.Write != fsnotify.Write {

				continue
			}
			if t, ok := pending[event.Name]; ok {
				t.Reset(w.settle)
				continue
			}
			name := event.Name
			pending[name] = time.AfterFunc(w.settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
		case name := <-ready:
			delete(pending, name)
			w.importFile(ctx, name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.l.Error("watcher error", log.ErrorField(err))
		}
	}
}

func (w *Watcher) importFile(ctx context.Context, file string) {
	sessionKey := SessionKeyFromFile(file)
	w.l.Info("importing telemetry file",
		log.String("file", file), log.String("session", sessionKey))
	data, err := ImportFile(ctx, w.db, file, &Options{
		SessionKey:    sessionKey,
		Track:         w.track,
		Car:           w.car,
		AutoReference: w.autoReference,
	})
	if err != nil {
		w.l.Error("import failed", log.String("file", file), log.ErrorField(err))
		return
	}
	w.l.Info("Import done",
		log.String("session", sessionKey),
		log.Int("frames", len(data.Frames)),
		log.Int("laps", len(data.LapTimes)))
	if w.onImport != nil {
		w.onImport(ctx, sessionKey)
	}
}

// SessionKeyFromFile returns the base name of file without extension.
func SessionKeyFromFile(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isCSV(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".csv")
}
