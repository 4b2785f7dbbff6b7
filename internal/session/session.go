// Package session models the activity editor's UI state as a value that the
// client carries between requests. Handlers apply one event to the state they
// receive and hand the result back; nothing is kept server side.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event does not apply to a state.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrInvalidToken is returned when a token cannot be decoded.
var ErrInvalidToken = errors.New("invalid session token")

// Action names an editor interaction.
type Action string

const (
	ActionNew           Action = "new"
	ActionEdit          Action = "edit"
	ActionCancel        Action = "cancel"
	ActionSaved         Action = "saved"
	ActionRequestDelete Action = "request_delete"
	ActionCancelDelete  Action = "cancel_delete"
	ActionConfirmDelete Action = "confirm_delete"
	ActionConflict      Action = "conflict"
	ActionResolve       Action = "resolve"
)

// Conflict is a placement waiting for the user to pick a resolution.
type Conflict struct {
	Location     string `json:"location"`
	OccupantID   int64  `json:"occupant_id"`
	OccupantName string `json:"occupant_name"`
}

// State is the editor state: which activity is open, whether the form is
// shown, which delete awaits confirmation and any unresolved conflict.
type State struct {
	EditingID     *int64    `json:"editing_id,omitempty"`
	ShowForm      bool      `json:"show_form"`
	DeleteConfirm *int64    `json:"delete_confirm,omitempty"`
	Conflict      *Conflict `json:"conflict,omitempty"`
}

// Event is one interaction applied to a State.
type Event struct {
	Action     Action    `json:"action"`
	ActivityID *int64    `json:"activity_id,omitempty"`
	Conflict   *Conflict `json:"conflict,omitempty"`
	// Resolution is insert, replace or cancel for ActionResolve.
	Resolution string `json:"resolution,omitempty"`
}

// Apply returns the state that results from ev. The input is not modified.
func Apply(state State, ev Event) (State, error) {
	switch ev.Action {
	case ActionNew:
		return State{ShowForm: true}, nil

	case ActionEdit:
		if ev.ActivityID == nil {
			return state, invalid(ev, "activity_id is required")
		}
		return State{EditingID: copyID(ev.ActivityID), ShowForm: true}, nil

	case ActionCancel, ActionSaved:
		if !state.ShowForm {
			return state, invalid(ev, "no form is open")
		}
		return State{}, nil

	case ActionRequestDelete:
		if state.EditingID == nil {
			return state, invalid(ev, "no activity is being edited")
		}
		next := state
		next.DeleteConfirm = copyID(state.EditingID)
		return next, nil

	case ActionCancelDelete:
		if state.DeleteConfirm == nil {
			return state, invalid(ev, "no delete is pending")
		}
		next := state
		next.DeleteConfirm = nil
		return next, nil

	case ActionConfirmDelete:
		if state.DeleteConfirm == nil || state.EditingID == nil || *state.DeleteConfirm != *state.EditingID {
			return state, invalid(ev, "no delete is pending for the open activity")
		}
		return State{}, nil

	case ActionConflict:
		if !state.ShowForm {
			return state, invalid(ev, "no form is open")
		}
		if ev.Conflict == nil {
			return state, invalid(ev, "conflict is required")
		}
		next := state
		c := *ev.Conflict
		next.Conflict = &c
		return next, nil

	case ActionResolve:
		if state.Conflict == nil {
			return state, invalid(ev, "no conflict is pending")
		}
		switch ev.Resolution {
		case "cancel":
			next := state
			next.Conflict = nil
			return next, nil
		case "insert", "replace":
			return State{}, nil
		default:
			return state, invalid(ev, fmt.Sprintf("unknown resolution %q", ev.Resolution))
		}

	default:
		return state, invalid(ev, "unknown action")
	}
}

func invalid(ev Event, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidTransition, ev.Action, detail)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Encode serialises state into an opaque URL-safe token.
func Encode(state State) (string, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(body), nil
}

// Decode parses a token produced by Encode. An empty token is the initial
// state.
func Decode(token string) (State, error) {
	if token == "" {
		return State{}, nil
	}
	body, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var state State
	if err := json.Unmarshal(body, &state); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return state, nil
}
