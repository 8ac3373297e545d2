package errorrate

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tailer follows an application log file from its current end and feeds
// every completed line into the window. Rotation and truncation reopen
// the file from the top.
type Tailer struct {
	path   string
	window *Window
	log    *slog.Logger
}

func NewTailer(path string, w *Window, logger *slog.Logger) *Tailer {
	return &Tailer{path: path, window: w, log: logger}
}

func (t *Tailer) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Error("create log watcher", "err", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		t.log.Error("watch log directory", "dir", filepath.Dir(t.path), "err", err)
		return
	}

	// Fallback poll for filesystems where write events never arrive.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	f, offset := t.openAtEnd()
	defer func() {
		if f != nil {
			f.Close()
		}
	}()
	t.log.Info("tailing log file", "path", t.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != t.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.log.Warn("log watcher", "err", werr)
			continue
		case <-ticker.C:
		}
		f, offset = t.drain(f, offset)
	}
}

func (t *Tailer) openAtEnd() (*os.File, int64) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, 0
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, 0
	}
	return f, end
}

// drain reads completed lines appended past offset. A trailing partial
// line stays unread until its newline arrives.
func (t *Tailer) drain(f *os.File, offset int64) (*os.File, int64) {
	info, err := os.Stat(t.path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, 0
	}
	if f == nil {
		if f, err = os.Open(t.path); err != nil {
			t.log.Warn("open log file", "path", t.path, "err", err)
			return nil, 0
		}
		offset = 0
	}
	if info.Size() < offset {
		// Truncated or rotated in place.
		f.Close()
		if f, err = os.Open(t.path); err != nil {
			return nil, 0
		}
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, 0
	}
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return f, offset
		}
		offset += int64(len(line))
		t.window.ObserveLine(strings.TrimRight(line, "\r\n"))
	}
}
