package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/model"
)

// AccountDeletedNotice is shown to a user whose session was revoked because the
// backing profile no longer exists.
const AccountDeletedNotice = "Your account has been deleted. Please contact support if this is an error."

var ErrAccountDeleted = errors.New("account has been deleted")

type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusVerifying       Status = "verifying"
	StatusAuthenticated   Status = "authenticated"
	StatusRevoked         Status = "revoked"
)

// State is the reconciled (identity, role) pair. Session and Role are only
// meaningful while Status is verifying or authenticated.
type State struct {
	Status  Status
	Session *Session
	Role    model.Role
	Notice  string
}

func (s State) IsAdmin() bool {
	return s.Status == StatusAuthenticated && s.Role == model.RoleAdmin
}

func (s State) UserID() uuid.UUID {
	if s.Session == nil || s.Status != StatusAuthenticated {
		return uuid.Nil
	}
	return s.Session.UserID
}

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventSignedOut      EventKind = "signed_out"
)

type Event struct {
	Kind    EventKind
	Session *Session
}

type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

type RoleLookup interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
}

type Revoker interface {
	Revoke(ctx context.Context, sessionID string) error
}

type listener struct {
	id int
	fn func(State)
}

// Reconciler keeps one identity's (session, role) pair consistent with the
// profile store. It is the single writer of that state; readers either poll
// State or Subscribe.
//
// Listeners run in commit order, outside the reconciler's lock.
type Reconciler struct {
	profiles ProfileLookup
	roles    RoleLookup
	revoker  Revoker
	log      *slog.Logger

	mu          sync.Mutex
	state       State
	gen         uint64
	cancel      context.CancelFunc
	queue       []State
	dispatching bool
	listeners   []listener
	nextID      int
}

func NewReconciler(profiles ProfileLookup, roles RoleLookup, revoker Revoker, log *slog.Logger) *Reconciler {
	return &Reconciler{
		profiles: profiles,
		roles:    roles,
		revoker:  revoker,
		log:      log,
		state:    State{Status: StatusUnauthenticated},
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn for every committed transition and returns a func
// that removes it.
func (r *Reconciler) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Restore verifies a persisted session found at startup. A nil session
// leaves the reconciler unauthenticated.
func (r *Reconciler) Restore(ctx context.Context, sess *Session) State {
	if sess == nil {
		return r.reset(State{Status: StatusUnauthenticated})
	}
	return r.verify(ctx, sess)
}

// Handle reacts to an auth provider event. A newer event supersedes any
// verification still in flight.
func (r *Reconciler) Handle(ctx context.Context, ev Event) State {
	if ev.Kind == EventSignedOut || ev.Session == nil {
		return r.reset(State{Status: StatusUnauthenticated})
	}
	return r.verify(ctx, ev.Session)
}

// SignOut revokes the current session at the backend and then clears local
// state. If revocation fails the local state is kept.
func (r *Reconciler) SignOut(ctx context.Context) error {
	cur := r.State()
	if cur.Session != nil {
		if err := r.revoker.Revoke(ctx, cur.Session.ID); err != nil {
			return err
		}
	}
	r.reset(State{Status: StatusUnauthenticated})
	return nil
}

func (r *Reconciler) reset(next State) State {
	r.mu.Lock()
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.commitLocked(next)
	st := r.state
	r.unlockAndNotify()
	return st
}

func (r *Reconciler) verify(ctx context.Context, sess *Session) State {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	vctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.commitLocked(State{Status: StatusVerifying, Session: sess})
	r.unlockAndNotify()
	defer cancel()

	log := r.log.With("user_id", sess.UserID, "session_id", sess.ID)

	exists := r.profileExists(vctx, log, sess.UserID)
	role := model.RoleCustomer
	if exists {
		role = r.resolveRole(vctx, log, sess.UserID)
	}

	if exists || ctx.Err() != nil {
		r.mu.Lock()
		if gen != r.gen {
			return r.supersededLocked(log)
		}
		r.cancel = nil
		if exists && ctx.Err() == nil {
			r.commitLocked(State{Status: StatusAuthenticated, Session: sess, Role: role})
		} else {
			// The caller gave up; nothing was confirmed, but nothing was disproved either.
			r.commitLocked(State{Status: StatusUnauthenticated})
		}
		st := r.state
		r.unlockAndNotify()
		return st
	}

	// The stale token must stop authorizing requests before local state goes.
	// Revocation runs unlocked so State and newer events are not held up by
	// the store round trip.
	if r.isCurrent(gen) {
		if err := r.revoker.Revoke(ctx, sess.ID); err != nil {
			log.Error("revoke session", "error", err)
		}
	}

	r.mu.Lock()
	if gen != r.gen {
		return r.supersededLocked(log)
	}
	r.cancel = nil
	r.commitLocked(State{Status: StatusRevoked, Session: sess, Notice: AccountDeletedNotice})
	r.commitLocked(State{Status: StatusUnauthenticated, Notice: AccountDeletedNotice})
	log.Warn("session revoked, profile missing")
	st := r.state
	r.unlockAndNotify()
	return st
}

func (r *Reconciler) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

// supersededLocked must be called with r.mu held; it releases it.
func (r *Reconciler) supersededLocked(log *slog.Logger) State {
	st := r.state
	r.mu.Unlock()
	log.Debug("verification superseded")
	return st
}

// profileExists fails closed: a lookup error counts as a missing profile.
func (r *Reconciler) profileExists(ctx context.Context, log *slog.Logger, userID uuid.UUID) bool {
	p, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		log.Error("profile verification failed", "error", err)
		return false
	}
	return p != nil
}

func (r *Reconciler) resolveRole(ctx context.Context, log *slog.Logger, userID uuid.UUID) model.Role {
	roles, err := r.roles.ListByUser(ctx, userID)
	if err != nil {
		log.Error("resolve role", "error", err)
		return model.RoleCustomer
	}
	return model.EffectiveRole(roles)
}

func (r *Reconciler) commitLocked(st State) {
	r.state = st
	r.queue = append(r.queue, st)
}

// unlockAndNotify releases mu and delivers queued transitions. Only one
// goroutine dispatches at a time, so listeners see commit order even when
// passes overlap, and no lock is held while a listener runs.
func (r *Reconciler) unlockAndNotify() {
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true
	for len(r.queue) > 0 {
		batch := r.queue
		r.queue = nil
		ls := make([]listener, len(r.listeners))
		copy(ls, r.listeners)
		r.mu.Unlock()

		for _, st := range batch {
			for _, l := range ls {
				l.fn(st)
			}
		}
		r.mu.Lock()
	}
	r.dispatching = false
	r.mu.Unlock()
}
