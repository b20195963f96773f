package role

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a roles file when it changes on disk. It is used in
// interactive sessions so edits between runs take effect without a
// restart. A running workflow keeps the sequence it started with.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(Sequence)

	mu      sync.Mutex
	current Sequence
	done    chan struct{}
}

// Watch starts watching the given roles file. The initial sequence is
// loaded immediately; onLoad is invoked for it and for every valid
// reload after that. Invalid edits are logged and skipped, keeping the
// last good sequence.
func Watch(path string, onLoad func(Sequence)) (*Watcher, error) {
	seq, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		onLoad:  onLoad,
		current: seq,
		done:    make(chan struct{}),
	}
	if onLoad != nil {
		onLoad(seq)
	}
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid sequence.
func (w *Watcher) Current() Sequence {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			seq, err := LoadFile(w.path)
			if err != nil {
				log.Printf("[roles] reload of %s failed, keeping previous sequence: %v", w.path, err)
				continue
			}
			w.mu.Lock()
			w.current = seq
			w.mu.Unlock()
			log.Printf("[roles] reloaded %s (%d roles)", w.path, len(seq))
			if w.onLoad != nil {
				w.onLoad(seq)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[roles] watcher error: %v", err)
		}
	}
}
