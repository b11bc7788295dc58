package nav

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/talc-dev/talc/internal/backend"
	"github.com/talc-dev/talc/internal/bus"
	"github.com/talc-dev/talc/internal/loop"
	"github.com/talc-dev/talc/internal/search"
	"github.com/talc-dev/talc/internal/store"
	intsync "github.com/talc-dev/talc/internal/sync"
	"go.uber.org/zap"
)

// Key is a navigation key event, already mapped from raw terminal input
// by the rendering layer.
type Key int

const (
	KeyTab Key = iota
	KeyEnter
	KeyEsc
	KeySearch     // '/'
	KeyFolderPrev // '['
	KeyFolderNext // ']'
	KeyUp
	KeyDown
	KeyArchive // 'a'
	KeyQuit    // 'q'
)

const defaultFetchLimit = 100

// Dispatcher applies key events to navigation state, issuing store
// mutations synchronously and backend requests on their own goroutines.
// All methods must run on the run loop.
type Dispatcher struct {
	nav        *State
	st         *store.Store
	index      *search.Index
	client     backend.Client
	rec        *intsync.Reconciler
	loop       *loop.Loop
	bus        *bus.Bus
	logger     *zap.Logger
	fetchLimit int
	quit       func()
}

// NewDispatcher creates a dispatcher. fetchLimit caps the message window
// requested when a conversation opens; non-positive values use the
// default. quit is invoked when the user requests shutdown.
func NewDispatcher(nav *State, st *store.Store, ix *search.Index, client backend.Client, rec *intsync.Reconciler, l *loop.Loop, b *bus.Bus, logger *zap.Logger, fetchLimit int, quit func()) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	return &Dispatcher{
		nav:        nav,
		st:         st,
		index:      ix,
		client:     client,
		rec:        rec,
		loop:       l,
		bus:        b,
		logger:     logger,
		fetchLimit: fetchLimit,
		quit:       quit,
	}
}

// Handle applies one key event. Returns true when the event was
// consumed.
func (d *Dispatcher) Handle(k Key) bool {
	switch k {
	case KeyQuit:
		d.quit()
		return true
	case KeyTab:
		return d.handleTab()
	case KeyEnter:
		return d.handleEnter()
	case KeyEsc:
		return d.handleEsc()
	case KeySearch:
		if d.nav.Focus == FocusSearch {
			return false
		}
		return d.nav.Transition(FocusSearch) == nil
	case KeyFolderPrev, KeyFolderNext:
		return d.handleFolderToggle()
	case KeyUp:
		return d.moveSelection(-1)
	case KeyDown:
		return d.moveSelection(1)
	case KeyArchive:
		return d.handleArchiveToggle()
	}
	return false
}

func (d *Dispatcher) handleTab() bool {
	switch d.nav.Focus {
	case FocusSearch:
		return d.nav.Transition(FocusList) == nil
	case FocusList:
		return d.nav.Transition(FocusSearch) == nil
	case FocusPanel:
		return d.nav.Transition(FocusList) == nil
	}
	return false
}

func (d *Dispatcher) handleEnter() bool {
	switch d.nav.Focus {
	case FocusSearch:
		// Submit: keep the query, move to the filtered list.
		return d.nav.Transition(FocusList) == nil
	case FocusList:
		id := d.selectedOrFirst()
		if id == "" {
			return false
		}
		d.openConversation(id)
		return true
	}
	return false
}

func (d *Dispatcher) handleEsc() bool {
	switch d.nav.Focus {
	case FocusPanel:
		d.nav.PanelOpen = false
		return d.nav.Transition(FocusList) == nil
	case FocusSearch:
		d.SetQuery("")
		return d.nav.Transition(FocusList) == nil
	}
	return false
}

func (d *Dispatcher) handleFolderToggle() bool {
	if d.nav.Focus != FocusList {
		return false
	}
	if d.nav.Folder == store.FolderMain {
		d.nav.Folder = store.FolderArchived
	} else {
		d.nav.Folder = store.FolderMain
	}
	// Selection resets to the first row of the new folder's list.
	d.nav.SelectedID = ""
	if rows := d.index.Query(d.nav.Folder, d.nav.Query); len(rows) > 0 {
		d.nav.SelectedID = rows[0]
	}
	return true
}

func (d *Dispatcher) handleArchiveToggle() bool {
	if d.nav.Focus != FocusList {
		return false
	}
	id := d.selectedOrFirst()
	if id == "" {
		return false
	}
	c, ok := d.st.Get(id)
	if !ok {
		return false
	}
	archived := c.Folder != store.FolderArchived
	target := store.FolderMain
	if archived {
		target = store.FolderArchived
	}
	d.st.SetFolder(id, target)
	if !d.rec.Frozen() {
		go d.callBackend("set archived", func(ctx context.Context) error {
			return d.client.SetArchived(ctx, id, archived)
		})
	}
	return true
}

func (d *Dispatcher) moveSelection(delta int) bool {
	if d.nav.Focus != FocusList {
		return false
	}
	rows := d.index.Query(d.nav.Folder, d.nav.Query)
	if len(rows) == 0 {
		d.nav.SelectedID = ""
		return true
	}
	// No selection renders as the first row, so movement starts there.
	at := -1
	for i, id := range rows {
		if id == d.nav.SelectedID {
			at = i
			break
		}
	}
	if at < 0 {
		at = 0
	}
	at += delta
	if at < 0 {
		at = 0
	}
	if at >= len(rows) {
		at = len(rows) - 1
	}
	d.nav.SelectedID = rows[at]
	return true
}

// SetQuery updates the live search query. Selection sticks to the
// previously selected conversation when it still matches, otherwise it
// falls to the first result.
func (d *Dispatcher) SetQuery(q string) {
	d.nav.Query = q
	rows := d.index.Query(d.nav.Folder, q)
	if len(rows) == 0 {
		d.nav.SelectedID = ""
		return
	}
	for _, id := range rows {
		if id == d.nav.SelectedID {
			return
		}
	}
	d.nav.SelectedID = rows[0]
}

// Send dispatches outgoing text for the open conversation. Anything
// beyond this basic dispatch (delivery state, retries) is the backend's
// concern.
func (d *Dispatcher) Send(body string) {
	if !d.nav.PanelOpen || d.nav.SelectedID == "" || body == "" || d.rec.Frozen() {
		return
	}
	id := d.nav.SelectedID
	go d.callBackend("send text", func(ctx context.Context) error {
		return d.client.SendText(ctx, id, body)
	})
}

// openConversation marks the conversation read and requests its message
// window, tagging the fetch so a later navigation can invalidate it.
func (d *Dispatcher) openConversation(id string) {
	d.nav.SelectedID = id
	d.nav.PanelOpen = true
	_ = d.nav.Transition(FocusPanel)
	d.st.MarkRead(id)

	if d.rec.Frozen() {
		return
	}
	token := uuid.New()
	d.nav.BeginFetch(token, id)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := d.client.MarkRead(ctx, id); err != nil {
			d.reportBackendErr("mark read", err)
		}
		msgs, err := d.client.FetchMessages(ctx, id, "", d.fetchLimit)
		if err != nil {
			d.reportBackendErr("fetch messages", err)
			return
		}
		d.loop.Submit(func() {
			d.rec.ApplyMessageWindow(token, id, msgs)
			d.nav.EndFetch(token)
		})
	}()
}

func (d *Dispatcher) callBackend(op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		d.reportBackendErr(op, err)
	}
}

// reportBackendErr surfaces a request failure without blocking
// interaction with already-loaded data.
func (d *Dispatcher) reportBackendErr(op string, err error) {
	d.logger.Warn("backend request failed", zap.String("op", op), zap.Error(err))
	d.bus.PublishKind(bus.KindSyncError, op+": "+err.Error())
}

// selectedOrFirst resolves the selection against the current visible
// rows, degrading to the first row when the selected ID is gone.
func (d *Dispatcher) selectedOrFirst() string {
	rows := d.index.Query(d.nav.Folder, d.nav.Query)
	if len(rows) == 0 {
		return ""
	}
	for _, id := range rows {
		if id == d.nav.SelectedID {
			return id
		}
	}
	return rows[0]
}
