// Buxna Finger Chooser
//
// Everyone puts a finger on one screen. After a short quiet period the table
// picks one or more winners, or splits everyone into two teams.
//
// Features:
// - WebSockets per table ID: /chooser/:tableid and /chooser/:tableid/ws
// - One screen per table; the same browser reconnecting replaces it
// - Touches map onto opaque contact IDs (uuid) for the session's lifetime
// - More than five fingers clears the table until everyone lets go
// - Single mode picks 1-4 winners, group mode splits into two teams
// - Tables auto-reaped after configurable idle timeout
// - Random 8-char table IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the table link, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/buxna/chooser"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from the screen
type ClientMessage struct {
	Type    string  `json:"type"`              // "touch_began", "touch_moved", "touch_ended", "touch_cancelled", "toggle_mode", "set_mode", "set_winners"
	Pointer int64   `json:"pointer"`           // touch_*
	X       float64 `json:"x"`                 // touch_*
	Y       float64 `json:"y"`                 // touch_*
	Mode    string  `json:"mode,omitempty"`    // set_mode
	Winners int     `json:"winners,omitempty"` // set_winners
}

// EventMessage wraps one chooser event.
type EventMessage struct {
	Type string        `json:"type"`
	Data chooser.Event `json:"data"`
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type       string       `json:"type"` // "session_info"
	Table      string       `json:"table"`
	Mode       chooser.Mode `json:"mode"`
	Winners    int          `json:"winners"`
	MaxWinners int          `json:"max_winners"`
	MaxTouches int          `json:"max_touches"`
	DelayMS    int64        `json:"delay_ms"`
}

// SimpleMessage is for generic notifications ("rejected", "table_busy", "replaced").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type input struct {
	client *Client
	msg    ClientMessage
}

// Table owns one chooser session. Everything touching the session runs
// on the run goroutine.
type Table struct {
	id  string
	cfg *Config

	session  *chooser.Session
	sched    *chooser.LoopScheduler
	screen   *Client
	pointers map[int64]chooser.ContactID

	register chan *Client
	unreg    chan *Client
	inputs   chan input
	quit     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newTable(cfg *Config, tableID string, rs chooser.RandomSource) *Table {
	now := time.Now()
	t := &Table{
		id:         tableID,
		cfg:        cfg,
		sched:      chooser.NewLoopScheduler(),
		pointers:   make(map[int64]chooser.ContactID),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		inputs:     make(chan input, 64),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
	t.session = chooser.New(t.sched, rs,
		chooser.WithDelay(cfg.selectionDelay),
		chooser.WithListener(t),
	)

	return t
}

func (t *Table) run() {
	defer t.sched.Close()

	for {
		select {
		case <-t.quit:
			if t.screen != nil {
				close(t.screen.send)
				t.screen = nil
			}
			return

		case c := <-t.register:
			t.touch()
			t.attach(c)

		case c := <-t.unreg:
			t.touch()
			t.detach(c)

		case in := <-t.inputs:
			t.touch()
			t.handleInput(in)

		case fire := <-t.sched.Fires():
			fire()
		}
	}
}

func (t *Table) stop() {
	t.stopOnce.Do(func() {
		close(t.quit)
	})
}

func (t *Table) touch() {
	t.mu.Lock()
	t.lastActive = time.Now()
	t.mu.Unlock()
}

func (t *Table) idleSince() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastActive
}

func (t *Table) attach(c *Client) {
	if t.screen != nil {
		if t.screen.playerID != c.playerID {
			c.send <- SimpleMessage{
				Type:    "table_busy",
				Message: "Another device is already using this table.",
			}
			close(c.send)
			return
		}

		select {
		case t.screen.send <- SimpleMessage{
			Type:    "replaced",
			Message: "This table was opened in another window.",
		}:
		default:
		}
		close(t.screen.send)
	}

	t.screen = c
	t.resetSession()

	cfg := t.session.Config()
	c.send <- SessionInfoMessage{
		Type:       "session_info",
		Table:      t.id,
		Mode:       cfg.Mode,
		Winners:    cfg.WinnerCount,
		MaxWinners: chooser.MaxWinners,
		MaxTouches: chooser.MaxConcurrentTouches,
		DelayMS:    t.cfg.selectionDelay.Milliseconds(),
	}

	logf(t.cfg, "TABLE: Screen %s attached to %s", c.playerID, t.id)
}

func (t *Table) detach(c *Client) {
	if c != t.screen {
		return
	}

	close(c.send)
	t.screen = nil
	t.resetSession()

	logf(t.cfg, "TABLE: Screen %s left %s", c.playerID, t.id)
}

// resetSession forgets every touch; fingers on a previous screen are gone.
func (t *Table) resetSession() {
	t.session.Reset()
	clear(t.pointers)
}

func (t *Table) handleInput(in input) {
	if in.client != t.screen {
		return
	}

	msg := in.msg
	pos := chooser.Position{X: msg.X, Y: msg.Y}

	var err error
	switch msg.Type {
	case "touch_began":
		if _, ok := t.pointers[msg.Pointer]; ok {
			return
		}
		id := chooser.ContactID(uuid.NewString())
		err = t.session.TouchBegan(id, pos)
		switch {
		case err == nil:
			t.pointers[msg.Pointer] = id
		case errors.Is(err, chooser.ErrCapExceeded):
			clear(t.pointers)
		}

	case "touch_moved":
		id, ok := t.pointers[msg.Pointer]
		if !ok {
			return
		}
		err = t.session.TouchMoved(id, pos)

	case "touch_ended", "touch_cancelled":
		// Unknown pointers are still released so a locked-out table
		// recovers once the over-cap fingers lift.
		id := t.pointers[msg.Pointer]
		delete(t.pointers, msg.Pointer)
		if msg.Type == "touch_ended" {
			err = t.session.TouchEnded(id)
		} else {
			err = t.session.TouchCancelled(id)
		}

	case "toggle_mode":
		t.reject(t.session.ToggleMode())
		return

	case "set_mode":
		mode, perr := chooser.ParseMode(msg.Mode)
		if perr == nil {
			perr = t.session.SetMode(mode)
		}
		t.reject(perr)
		return

	case "set_winners":
		t.reject(t.session.SetWinnerCount(msg.Winners))
		return

	default:
		// ignore unknown types
		return
	}

	if err != nil {
		logf(t.cfg, "TABLE: %s pointer %d in %s: %v", msg.Type, msg.Pointer, t.id, err)
	}
}

// reject tells the screen why a configuration command was refused.
func (t *Table) reject(err error) {
	if err == nil {
		return
	}

	logf(t.cfg, "TABLE: Rejected command in %s: %v", t.id, err)

	t.deliver(SimpleMessage{
		Type:    "rejected",
		Message: err.Error(),
	})
}

// Notify forwards session events to the screen.
func (t *Table) Notify(ev chooser.Event) {
	switch e := ev.(type) {
	case chooser.WinnerRevealed:
		logf(t.cfg, "TABLE: Winner %s picked in %s", e.ID, t.id)
	case chooser.TeamsAssigned:
		logf(t.cfg, "TABLE: Split %d players into teams in %s", len(e.Teams), t.id)
	case chooser.AllMarkersCleared:
		logf(t.cfg, "TABLE: Too many fingers in %s, clearing %d markers", t.id, len(e.IDs))
	}

	t.deliver(EventMessage{Type: ev.Kind(), Data: ev})
}

func (t *Table) deliver(msg any) {
	if t.screen == nil {
		return
	}

	// A screen that cannot keep up is dropped; the next attach resets.
	select {
	case t.screen.send <- msg:
	default:
		close(t.screen.send)
		t.screen = nil
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "buxna_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// TableManager holds a set of tables keyed by table ID, so each
// $path/$tableid is its own isolated session.
type TableManager struct {
	cfg         *Config
	mu          sync.Mutex
	tables      map[string]*Table
	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

func newTableManager(cfg *Config, idleTimeout time.Duration) *TableManager {
	tm := &TableManager{
		cfg:         cfg,
		tables:      make(map[string]*Table),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go tm.reaperLoop()
	}
	return tm
}

func (tm *TableManager) getTable(tableID string) (*Table, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if t, ok := tm.tables[tableID]; ok {
		return t, nil
	}

	rs, err := tm.cfg.randomSource()
	if err != nil {
		return nil, err
	}

	t := newTable(tm.cfg, tableID, rs)
	tm.tables[tableID] = t
	go t.run()
	return t, nil
}

// newTableID generates a crypto-random table ID and ensures it doesn't
// collide with existing tables.
func (tm *TableManager) newTableID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 8)
		buf := make([]byte, 16)
		for len(out) < 8 {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max && len(out) < 8 {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}
		id := string(out)

		tm.mu.Lock()
		_, exists := tm.tables[id]
		tm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes tables that have been idle longer than idleTimeout.
func (tm *TableManager) reaperLoop() {
	ticker := time.NewTicker(tm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-tm.done:
			return
		case <-ticker.C:
			tm.reap(time.Now().Add(-tm.idleTimeout))
		}
	}
}

func (tm *TableManager) reap(cutoff time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for id, t := range tm.tables {
		if t.idleSince().Before(cutoff) {
			delete(tm.tables, id)
			t.stop()
			logf(tm.cfg, "TABLE: Reaped idle table %s", id)
		}
	}
}

func (tm *TableManager) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return len(tm.tables)
}

// Close stops the reaper and every table.
func (tm *TableManager) Close() {
	tm.closeOnce.Do(func() {
		close(tm.done)
	})

	tm.mu.Lock()
	defer tm.mu.Unlock()

	for id, t := range tm.tables {
		delete(tm.tables, id)
		t.stop()
	}
}

// WebSocket handler that picks the table based on :tableid
func serveWSForManager(cfg *Config, tm *TableManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tableID := ps.ByName("tableid")
		if tableID == "" {
			http.Error(w, "missing table id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		t, err := tm.getTable(tableID)
		if err != nil {
			logf(cfg, "TABLE: Unable to open %s: %v", tableID, err)
			http.Error(w, "unable to open table", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "TABLE: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		select {
		case t.register <- client:
		case <-t.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(t)
	}
}

func (c *Client) readPump(t *Table) {
	defer func() {
		select {
		case t.unreg <- c:
		case <-t.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case t.inputs <- input{client: c, msg: msg}:
		case <-t.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current table URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tableID := ps.ByName("tableid")
	if tableID == "" {
		http.Error(w, "missing table id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:tableid/qr; strip trailing "/qr" to get the table URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed assets/chooser/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewTable handles GET /path by generating a new random table ID
// (with server-side collision detection) and redirecting to /path/:tableid.
func redirectNewTable(cfg *Config, path string, tm *TableManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		tableID := tm.newTableID()
		logf(cfg, "TABLE: Created table %s/%s", path, tableID)
		http.Redirect(w, r, path+"/"+tableID, http.StatusTemporaryRedirect)
	}
}

// registerChooser sets up routes so that:
//   - $path                  → redirects to new random table (8-char ID)
//   - $path/:tableid         → HTML client
//   - $path/:tableid/ws      → WebSocket for that table
//   - $path/:tableid/qr      → PNG QR code for that table URL
func registerChooser(cfg *Config, path string, mux *httprouter.Router) *TableManager {
	tm := newTableManager(cfg, cfg.sessionTimeout)

	full := cfg.prefix + path

	mux.GET(full, redirectNewTable(cfg, full, tm))

	mux.GET(full+"/:tableid", getIndexHandler(cfg))

	mux.GET(full+"/:tableid/ws", serveWSForManager(cfg, tm))

	mux.GET(full+"/:tableid/qr", qrHandler)

	return tm
}
