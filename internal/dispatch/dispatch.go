// Package dispatch is the request boundary of the scheduler. Clients speak
// a compact protocol of integer opcodes with JSON payloads; the dispatcher
// serializes all schedule access behind one mutex, applies the rate limit,
// and publishes mutation notifications for observers.
package dispatch

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sprites20/barangay-proceedings/internal/eventbus"
	"github.com/sprites20/barangay-proceedings/internal/placement"
	"github.com/sprites20/barangay-proceedings/internal/recur"
	"github.com/sprites20/barangay-proceedings/internal/template"
	"github.com/sprites20/barangay-proceedings/internal/timeslot"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

// Op selects the operation a request invokes.
type Op int

const (
	OpAddTrack       Op = 1
	OpListTracks     Op = 2
	OpRenameTrack    Op = 3
	OpSetTrackHidden Op = 4
	OpRemoveTrack    Op = 5

	OpListTemplates Op = 10
	OpDropTemplate  Op = 11
	OpCreateEvent   Op = 12
	OpMoveEvent     Op = 13
	OpSetStartTime  Op = 14
	OpSetEndTime    Op = 15
	OpRenameEvent   Op = 16
	OpDeleteEvent   Op = 17

	OpApplyRule    Op = 20
	OpApplyRuleAll Op = 21

	OpViewDay       Op = 30
	OpSetViewDate   Op = 31
	OpSelectEvent   Op = 32
	OpSetDeleteMode Op = 33
)

// Request is one client call. Data is the opcode-specific payload.
type Request struct {
	Op   Op              `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the uniform reply envelope.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Session is per-dispatcher interaction state: the viewed date, the
// currently selected event, and whether click-to-delete is armed. It never
// touches the schedule itself.
type Session struct {
	ViewDate        time.Time `json:"view_date"`
	SelectedEventID string    `json:"selected_event_id,omitempty"`
	DeleteMode      bool      `json:"delete_mode"`
}

type handler func(*Dispatcher, json.RawMessage) (any, error)

// handlers is the opcode table. Unknown opcodes fail without acquiring the
// schedule lock.
var handlers = map[Op]handler{
	OpAddTrack:       (*Dispatcher).handleAddTrack,
	OpListTracks:     (*Dispatcher).handleListTracks,
	OpRenameTrack:    (*Dispatcher).handleRenameTrack,
	OpSetTrackHidden: (*Dispatcher).handleSetTrackHidden,
	OpRemoveTrack:    (*Dispatcher).handleRemoveTrack,
	OpListTemplates:  (*Dispatcher).handleListTemplates,
	OpDropTemplate:   (*Dispatcher).handleDropTemplate,
	OpCreateEvent:    (*Dispatcher).handleCreateEvent,
	OpMoveEvent:      (*Dispatcher).handleMoveEvent,
	OpSetStartTime:   (*Dispatcher).handleSetStartTime,
	OpSetEndTime:     (*Dispatcher).handleSetEndTime,
	OpRenameEvent:    (*Dispatcher).handleRenameEvent,
	OpDeleteEvent:    (*Dispatcher).handleDeleteEvent,
	OpApplyRule:      (*Dispatcher).handleApplyRule,
	OpApplyRuleAll:   (*Dispatcher).handleApplyRuleAll,
	OpViewDay:        (*Dispatcher).handleViewDay,
	OpSetViewDate:    (*Dispatcher).handleSetViewDate,
	OpSelectEvent:    (*Dispatcher).handleSelectEvent,
	OpSetDeleteMode:  (*Dispatcher).handleSetDeleteMode,
}

// Dispatcher owns the schedule lock. Every handler runs with the lock held,
// so the engine and expander below never see concurrent calls.
type Dispatcher struct {
	log       logx.Logger
	engine    *placement.Engine
	expander  *recur.Expander
	templates *template.Catalog
	bus       *eventbus.Bus

	mu      sync.Mutex
	limiter *rate.Limiter
	session Session
}

func New(engine *placement.Engine, expander *recur.Expander, templates *template.Catalog, bus *eventbus.Bus, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:       log,
		engine:    engine,
		expander:  expander,
		templates: templates,
		bus:       bus,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		session:   Session{ViewDate: timeslot.StartOfDay(time.Now())},
	}
}

// SetRateLimit installs a sustained requests-per-second cap. Zero or
// negative disables limiting.
func (d *Dispatcher) SetRateLimit(perSec float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if perSec <= 0 {
		d.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	d.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
}

// WithLock runs fn with the schedule lock held, for callers that need a
// consistent read across the registry and store (snapshotting).
func (d *Dispatcher) WithLock(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Session returns a copy of the interaction state.
func (d *Dispatcher) Session() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Handle executes one request and never panics outward; all failures come
// back in the Response envelope.
func (d *Dispatcher) Handle(req Request) Response {
	fn, ok := handlers[req.Op]
	if !ok {
		return fail(fmt.Errorf("unknown opcode %d", req.Op))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.limiter.Allow() {
		return fail(fmt.Errorf("rate limit exceeded"))
	}

	data, err := fn(d, req.Data)
	if err != nil {
		d.log.Debug("request failed",
			logx.Int("op", int(req.Op)),
			logx.Err(err),
		)
		return fail(err)
	}
	return Response{OK: true, Data: data}
}

func fail(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

func (d *Dispatcher) publish(kind eventbus.Kind, trackID, eventID string) {
	if d.bus != nil {
		d.bus.Publish(eventbus.Mutation{Kind: kind, TrackID: trackID, EventID: eventID})
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}
