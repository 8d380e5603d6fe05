// Package notify ingests documents dropped into the intake directory.
package notify

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/pkg/types"
)

// ingestible file extensions
var intakeExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// IntakeWatcher watches a directory and stores every dropped .txt/.md
// file as a document. Files are consumed: a successfully ingested file is
// removed from the intake directory.
type IntakeWatcher struct {
	dir     string
	store   storage.DocumentStore
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewIntakeWatcher creates a watcher over dir.
func NewIntakeWatcher(dir string, store storage.DocumentStore) *IntakeWatcher {
	return &IntakeWatcher{
		dir:   dir,
		store: store,
		done:  make(chan struct{}),
	}
}

// Start ingests any files already waiting, then watches for new ones.
// Call Stop to clean up.
func (w *IntakeWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return err
	}

	w.drainExisting()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	go w.loop()
	log.Printf("[watcher] watching %s for documents", w.dir)
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *IntakeWatcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
}

func (w *IntakeWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// editors fire Create then Write; ingest on either and let
			// the upsert absorb the duplicate
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 && ingestible(evt.Name) {
				// give the writer a moment to finish the file
				time.Sleep(100 * time.Millisecond)
				w.ingest(evt.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

func (w *IntakeWatcher) drainExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && ingestible(entry.Name()) {
			w.ingest(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *IntakeWatcher) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// already consumed or still being written
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		return
	}

	doc := types.Document{
		ID:      uuid.New().String(),
		Name:    filepath.Base(path),
		Content: string(data),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.store.PutDocument(ctx, doc); err != nil {
		log.Printf("[watcher] storing %s: %v", doc.Name, err)
		return
	}
	_ = os.Remove(path)
	log.Printf("[watcher] ingested %s (%d bytes)", doc.Name, len(doc.Content))
}

func ingestible(name string) bool {
	return intakeExtensions[strings.ToLower(filepath.Ext(name))]
}
