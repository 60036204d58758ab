package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"attendance-backend/internal/bus"
	"attendance-backend/internal/model"
	"attendance-backend/internal/store"
)

// Outcome is the result kind of processing one card scan.
type Outcome string

const (
	OutcomeCheckedIn  Outcome = "checkin"
	OutcomeCheckedOut Outcome = "checkout"
	OutcomeUnknown    Outcome = "unknown_card"
)

// Action is an explicit admin choice on the manual path.
type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

// Result describes what a scan did. Member and Session are nil for
// OutcomeUnknown.
type Result struct {
	Outcome Outcome
	Member  *model.Member
	Session *model.Session
}

// Engine decides check-in versus check-out for each resolved scan and
// applies it to the session ledger. Direction is inferred purely from
// whether the member currently has an open session.
type Engine struct {
	store store.Store
	bus   bus.Broadcaster
}

// NewEngine creates the attendance engine.
func NewEngine(s store.Store, b bus.Broadcaster) *Engine {
	return &Engine{store: s, bus: b}
}

// Scan processes one debounced card scan. An unregistered card yields
// OutcomeUnknown with no ledger mutation and no broadcast.
func (e *Engine) Scan(ctx context.Context, cardUID string, at time.Time) (Result, error) {
	member, err := e.store.MemberByCardUID(ctx, cardUID)
	if errors.Is(err, store.ErrMemberNotFound) {
		log.Printf("Unknown card scanned: %s", cardUID)
		return Result{Outcome: OutcomeUnknown}, nil
	}
	if err != nil {
		return Result{}, err
	}

	// The toggle never reports AlreadyOpen/NotOpen: the direction is chosen
	// from the ledger state inside the same operation.
	session, err := e.store.CloseSession(ctx, member.ID, at, false)
	if err == nil {
		log.Printf("%s checked OUT at %s", member.Name, at.Format("15:04:05"))
		e.publishMemberEvent(bus.KindCheckedOut, member, at)
		return Result{Outcome: OutcomeCheckedOut, Member: member, Session: session}, nil
	}
	if !errors.Is(err, store.ErrNotOpen) {
		return Result{}, fmt.Errorf("check-out for member %d failed: %w", member.ID, err)
	}

	session, err = e.store.OpenSession(ctx, member.ID, at)
	if err != nil {
		return Result{}, fmt.Errorf("check-in for member %d failed: %w", member.ID, err)
	}
	log.Printf("%s checked IN at %s", member.Name, at.Format("15:04:05"))
	e.publishMemberEvent(bus.KindCheckedIn, member, at)
	return Result{Outcome: OutcomeCheckedIn, Member: member, Session: session}, nil
}

// ManualAction applies an explicit admin check-in or check-out. Unlike the
// scan toggle it surfaces ErrAlreadyOpen and ErrNotOpen: an admin choosing
// "check out" on a member who is already out is an error, not a no-op.
func (e *Engine) ManualAction(ctx context.Context, memberID int64, action Action, at time.Time) (Result, error) {
	member, err := e.store.MemberByID(ctx, memberID)
	if err != nil {
		return Result{}, err
	}

	switch action {
	case ActionCheckIn:
		session, err := e.store.OpenSession(ctx, member.ID, at)
		if err != nil {
			return Result{}, err
		}
		e.publishMemberEvent(bus.KindCheckedIn, member, at)
		return Result{Outcome: OutcomeCheckedIn, Member: member, Session: session}, nil
	case ActionCheckOut:
		session, err := e.store.CloseSession(ctx, member.ID, at, false)
		if err != nil {
			return Result{}, err
		}
		e.publishMemberEvent(bus.KindCheckedOut, member, at)
		return Result{Outcome: OutcomeCheckedOut, Member: member, Session: session}, nil
	default:
		return Result{}, fmt.Errorf("invalid action %q", action)
	}
}

func (e *Engine) publishMemberEvent(kind bus.Kind, member *model.Member, at time.Time) {
	evt := bus.NewEvent(kind, at)
	evt.MemberID = member.ID
	evt.MemberName = member.Name
	e.bus.Publish(evt)
}
