package tui

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/talc-dev/talc/internal/backend"
	"github.com/talc-dev/talc/internal/bus"
	"github.com/talc-dev/talc/internal/loop"
	"github.com/talc-dev/talc/internal/nav"
	"github.com/talc-dev/talc/internal/search"
	"github.com/talc-dev/talc/internal/store"
	intsync "github.com/talc-dev/talc/internal/sync"
	"github.com/talc-dev/talc/internal/view"
	"go.uber.org/zap"
)

// frameInterval coalesces redraws: a burst of store changes triggers at
// most one projection per frame tick. Mutations themselves are never
// dropped, only the redraw trigger is throttled.
const frameInterval = 50 * time.Millisecond

// App is the TUI shell. It owns the tview application and translates
// between raw terminal events and the navigation dispatcher; all
// conversation state stays in the store.
type App struct {
	app      *tview.Application
	theme    *Theme
	st       *store.Store
	index    *search.Index
	navState *nav.State
	disp     *nav.Dispatcher
	loop     *loop.Loop
	bus      *bus.Bus
	logger   *zap.Logger

	list      *ConversationList
	panel     *MessagePanel
	searchBar *tview.InputField
	status    *StatusBar
	flash     *Flash

	dirty      atomic.Bool
	focusCache atomic.Value // nav.Focus
	statusText atomic.Value // string
	panelWidth atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. fetchLimit is the configured
// message-window size requested when a conversation opens.
func NewApp(st *store.Store, ix *search.Index, navState *nav.State, client backend.Client, rec *intsync.Reconciler, l *loop.Loop, b *bus.Bus, logger *zap.Logger, fetchLimit int) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := DefaultTheme()
	flash := &Flash{}

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		st:       st,
		index:    ix,
		navState: navState,
		loop:     l,
		bus:      b,
		logger:   logger,
		list:     NewConversationList(theme),
		panel:    NewMessagePanel(theme),
		status:   NewStatusBar(theme, flash),
		flash:    flash,
		ctx:      ctx,
		cancel:   cancel,
	}
	a.disp = nav.NewDispatcher(navState, st, ix, client, rec, l, b, logger, fetchLimit, a.app.Stop)
	a.focusCache.Store(nav.FocusList)
	a.statusText.Store("CONNECTING")
	a.panelWidth.Store(80)

	a.setupLayout()
	a.setupCallbacks()
	return a
}

func (a *App) setupLayout() {
	a.searchBar = tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	a.searchBar.SetBorder(true)
	a.searchBar.SetBorderColor(a.theme.BorderColor)
	a.searchBar.SetBackgroundColor(a.theme.BgColor)
	a.searchBar.SetFieldBackgroundColor(a.theme.BgColor)
	a.searchBar.SetFieldTextColor(a.theme.FgColor)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.searchBar, 3, 0, false).
		AddItem(a.list, 0, 1, true)

	columns := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(a.panel, 0, 2, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(columns, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		composing := a.app.GetFocus() == a.panel.Composer()

		// 'i' focuses the composer from the panel; a rendering-layer
		// affordance, not a navigation transition.
		focus, _ := a.focusCache.Load().(nav.Focus)
		if focus == nav.FocusPanel && !composing &&
			ev.Key() == tcell.KeyRune && ev.Rune() == 'i' {
			a.app.SetFocus(a.panel.Composer())
			return nil
		}

		k, ok := mapKey(ev, focus, composing)
		if !ok {
			return ev
		}
		a.loop.Submit(func() { a.disp.Handle(k) })
		a.markDirty()
		return nil
	})
}

func (a *App) setupCallbacks() {
	a.searchBar.SetChangedFunc(func(text string) {
		a.loop.Submit(func() { a.disp.SetQuery(text) })
		a.markDirty()
	})

	a.panel.SetOnSend(func(text string) {
		a.loop.Submit(func() { a.disp.Send(text) })
		a.markDirty()
	})
}

func (a *App) markDirty() {
	a.dirty.Store(true)
}

// Run starts the TUI and blocks until shutdown.
func (a *App) Run() error {
	go a.consumeBus()
	go a.frameLoop()
	a.markDirty()
	defer a.cancel()
	return a.app.Run()
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// consumeBus watches core events and turns them into redraw triggers
// and status updates.
func (a *App) consumeBus() {
	ch, unsub := a.bus.Subscribe("", 256)
	defer unsub()
	for {
		select {
		case evt := <-ch:
			switch evt.Kind {
			case bus.KindStoreChanged:
				a.markDirty()
			case bus.KindSyncStatus:
				if s, ok := evt.Payload.(intsync.Status); ok {
					a.statusText.Store(string(s))
				}
				a.markDirty()
			case bus.KindSyncError:
				if msg, ok := evt.Payload.(string); ok {
					a.flash.Set(msg, 5*time.Second)
				}
				a.markDirty()
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// frameLoop projects and redraws at most once per frame tick while the
// model is dirty.
func (a *App) frameLoop() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !a.dirty.Swap(false) {
				continue
			}
			modelCh := make(chan view.RenderModel, 1)
			width := int(a.panelWidth.Load())
			a.loop.Submit(func() {
				ids := a.index.Query(a.navState.Folder, a.navState.Query)
				convs := view.Collect(a.st, ids)
				modelCh <- view.Project(convs, a.navState.Snapshot(), width, time.Now())
			})
			var m view.RenderModel
			select {
			case m = <-modelCh:
			case <-a.ctx.Done():
				return
			}
			a.focusCache.Store(m.Focus)
			a.app.QueueUpdateDraw(func() { a.render(m) })
		case <-a.ctx.Done():
			return
		}
	}
}

// render applies a fully resolved model to the widgets. Runs on the
// tview event goroutine.
func (a *App) render(m view.RenderModel) {
	a.list.Render(m)
	a.panel.Render(m.Panel)

	status, _ := a.statusText.Load().(string)
	a.status.SetBadge(m.FolderBadge)
	a.status.SetStatus(status)

	_, _, w, _ := a.panel.Messages().GetInnerRect()
	if w > 0 {
		a.panelWidth.Store(int32(w))
	}

	switch m.Focus {
	case nav.FocusSearch:
		a.app.SetFocus(a.searchBar)
	case nav.FocusPanel:
		if a.app.GetFocus() != a.panel.Composer() {
			a.app.SetFocus(a.panel.Messages())
		}
	default:
		a.app.SetFocus(a.list)
	}
}
