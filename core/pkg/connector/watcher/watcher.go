// Package watcher implements component E: a two-goroutine pipeline that
// watches each connector's directory for changes and reloads it into the
// repository. One goroutine polls the filesystem and debounces bursts of
// events into a set of changed service names; the other consumes that set,
// reloads each service through the loader pipeline, and gates the watcher
// goroutine's next burst-collection pass until the reload finishes.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/madcok-co/conduit/core/pkg/connector/loader"
	"github.com/madcok-co/conduit/core/pkg/connector/repository"
	"go.uber.org/zap"
)

// burstAbsorption is how long the watcher goroutine sleeps after the first
// event in a batch before draining the debounce set, so that a burst of
// near-simultaneous filesystem events collapses into one reload per
// service.
const burstAbsorption = 2 * time.Second

// Watcher coordinates the two goroutines over a named set of connector
// directories.
type Watcher struct {
	paths  map[string]string // service name -> directory
	store  *repository.Store
	logger *zap.Logger

	fileCh  chan []string
	readyCh chan bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Watcher over paths (service name -> connector directory).
func New(paths map[string]string, store *repository.Store, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		paths:   paths,
		store:   store,
		logger:  logger,
		fileCh:  make(chan []string, 16),
		readyCh: make(chan bool, 1),
		stop:    make(chan struct{}),
	}
}

// Start launches both goroutines and primes an initial full reload of
// every configured service, so first load happens through the same code
// path as reload.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	changedCh := make(chan string, 64)

	w.wg.Add(1)
	go w.runWatch(fsw, changedCh)

	w.wg.Add(1)
	go w.runLoad()

	for name, dir := range w.paths {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("unable to watch connector directory", zap.String("service", name), zap.String("dir", dir), zap.Error(err))
		}
	}

	all := make([]string, 0, len(w.paths))
	for name := range w.paths {
		all = append(all, name)
	}
	w.fileCh <- all

	return nil
}

// Stop shuts both goroutines down.
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()
}

// EnableKafkaSignal wires a distributed reload signal into the same
// fileCh the filesystem watcher feeds. Disabled by default; the daemon
// only calls this when config enables it.
func (w *Watcher) EnableKafkaSignal(ctx context.Context, signal *KafkaSignal) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		signal.Run(ctx, w.fileCh)
	}()
}

// runWatch is the debounce goroutine: it accumulates changed service names
// into a set, and on the ready-gate signal, drains and forwards them.
func (w *Watcher) runWatch(fsw *fsnotify.Watcher, changedCh chan string) {
	defer w.wg.Done()
	defer fsw.Close()

	dirToService := make(map[string]string, len(w.paths))
	for name, dir := range w.paths {
		dirToService[filepath.Clean(dir)] = name
	}

	seen := map[string]struct{}{}
	var mu sync.Mutex

	go func() {
		for {
			select {
			case <-w.stop:
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				name, ok := serviceForEvent(dirToService, event.Name)
				if !ok {
					continue
				}
				mu.Lock()
				seen[name] = struct{}{}
				mu.Unlock()
				select {
				case changedCh <- name:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case ready, ok := <-w.readyCh:
			if !ok {
				return
			}
			if !ready {
				continue
			}
			select {
			case <-w.stop:
				return
			case <-changedCh:
				time.Sleep(burstAbsorption)
				mu.Lock()
				names := make([]string, 0, len(seen))
				for name := range seen {
					names = append(names, name)
				}
				seen = map[string]struct{}{}
				mu.Unlock()
				if len(names) > 0 {
					w.fileCh <- names
				}
			}
		}
	}
}

// serviceForEvent maps a raw fsnotify path to the connector directory that
// contains it.
func serviceForEvent(dirToService map[string]string, path string) (string, bool) {
	dir := filepath.Dir(path)
	for {
		if name, ok := dirToService[dir]; ok {
			return name, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// runLoad is the load goroutine: it reloads each changed service through
// the loader pipeline and saves the result into the repository, signaling
// the watcher goroutine ready for the next batch once done.
func (w *Watcher) runLoad() {
	defer w.wg.Done()

	w.readyCh <- true

	for {
		select {
		case <-w.stop:
			return
		case names, ok := <-w.fileCh:
			if !ok {
				return
			}
			for _, name := range names {
				w.reload(name)
			}
			select {
			case w.readyCh <- true:
			case <-w.stop:
				return
			}
		}
	}
}

func (w *Watcher) reload(name string) {
	dir, ok := w.paths[name]
	if !ok {
		w.logger.Warn("service not found for reload", zap.String("service", name))
		return
	}
	fetcher := loader.NewDirFetcher(dir)
	connector, creds, err := loader.Load(name, fetcher, true, false)
	if err != nil {
		w.logger.Error("error reloading connector", zap.String("service", name), zap.Error(err))
		return
	}
	w.store.Services.Save(name, connector)
	if creds != nil {
		w.store.Credentials.Save(name, creds)
	}
	w.logger.Info("reloaded connector", zap.String("service", name))
}
