package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

const reloadDebounce = 150 * time.Millisecond

// Reloader serves turns with the latest bot that loaded successfully and
// rebuilds it when the definition files change. Conversation state lives in
// the shared storage, so conversations continue across reloads.
type Reloader struct {
	env     *Env
	current atomic.Pointer[botbuilder.Bot]

	// Notify, when set, is called after every reload attempt.
	Notify func(err error)
}

// NewReloader loads the initial bot.
func NewReloader(env *Env) (*Reloader, error) {
	r := &Reloader{env: env}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Bot returns the bot currently serving turns.
func (r *Reloader) Bot() *botbuilder.Bot {
	return r.current.Load()
}

// OnTurn runs the turn on the current bot.
func (r *Reloader) OnTurn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error) {
	return r.current.Load().OnTurn(ctx, act)
}

// Root returns the root dialog of the current bot.
func (r *Reloader) Root() string {
	return r.current.Load().Root()
}

// Reload rebuilds the bot. On failure the previous bot keeps serving.
func (r *Reloader) Reload() error {
	bot, err := r.env.LoadBot()
	if err == nil {
		r.current.Store(bot)
	}
	return err
}

// Watch reloads on every change below the definition path until ctx is done.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, r.env.Config.Bot); err != nil {
		return err
	}
	r.env.Logger.Info("Watching definition", "path", r.env.Config.Bot)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addTree(watcher, ev.Name)
				}
			}
			r.env.Logger.Debug("Change detected", "file", ev.Name, "op", ev.Op.String())
			// Editors emit bursts of events per save.
			pending = time.After(reloadDebounce)
		case <-pending:
			pending = nil
			err := r.Reload()
			if err != nil {
				r.env.Logger.Warn("Reload failed, keeping previous definition", "err", err)
			} else {
				r.env.Logger.Info("Definition reloaded", "root", r.Root())
			}
			if r.Notify != nil {
				r.Notify(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.env.Logger.Warn("Watcher error", "err", err)
		}
	}
}

// addTree watches root, or its parent directory when root is a file.
func addTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".yaml", ".yml", ".json", ".tmpl", "":
		return true
	}
	return false
}
