package session

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnexpectedEvent = errors.New("unexpected event")

// State is a position of the user in a dialogue.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitLogin    State = "await-login"
	StateAwaitPass     State = "await-pass"
	StateLibrarySearch State = "library-search"
	StateSegmentChoice State = "segment-choice"
	StateUploadFile    State = "upload-file"
	StateUploadName    State = "upload-name"
	StateUploadAuthor  State = "upload-author"
	StateUploadConfirm State = "upload-confirm"
	StateAutoDJHours   State = "autodj-hours"
)

var states = []State{
	StateIdle,
	StateAwaitLogin,
	StateAwaitPass,
	StateLibrarySearch,
	StateSegmentChoice,
	StateUploadFile,
	StateUploadName,
	StateUploadAuthor,
	StateUploadConfirm,
	StateAutoDJHours,
}

// Known reports whether s is one of dialogue states.
func (s State) Known() bool {
	return slices.Contains(states, s)
}

// Authenticated reports whether the state belongs to a logged in user.
func (s State) Authenticated() bool {
	return s != StateAwaitLogin && s != StateAwaitPass
}

// Event is an input that moves the dialogue.
type Event string

const (
	EventStartUnknown   Event = "start-unknown"
	EventStartKnown     Event = "start-known"
	EventMainMenu       Event = "main-menu"
	EventSchedule       Event = "schedule"
	EventHelp           Event = "help"
	EventReset          Event = "reset"
	EventLogin          Event = "login"
	EventLoginOK        Event = "login-ok"
	EventLoginFail      Event = "login-fail"
	EventLibrary        Event = "library"
	EventSearch         Event = "search"
	EventPickSegment    Event = "pick-segment"
	EventSegmentCreated Event = "segment-created"
	EventUpload         Event = "upload"
	EventFile           Event = "file"
	EventFileNamed      Event = "file-named"
	EventConfirm        Event = "confirm"
	EventRename         Event = "rename"
	EventName           Event = "name"
	EventAuthor         Event = "author"
	EventAutoDJ         Event = "autodj"
	EventHours          Event = "hours"
)

type edge struct {
	from  State
	event Event
}

// menuEvents are accepted from every authenticated state.
var menuEvents = map[Event]State{
	EventStartKnown: StateIdle,
	EventMainMenu:   StateIdle,
	EventSchedule:   StateIdle,
	EventHelp:       StateIdle,
	EventReset:      StateIdle,
	EventLibrary:    StateLibrarySearch,
	EventUpload:     StateUploadFile,
	EventAutoDJ:     StateAutoDJHours,
}

var transitions = map[edge]State{
	{StateAwaitLogin, EventLogin}:             StateAwaitPass,
	{StateAwaitPass, EventLoginOK}:            StateIdle,
	{StateAwaitPass, EventLoginFail}:          StateAwaitLogin,
	{StateLibrarySearch, EventSearch}:         StateLibrarySearch,
	{StateLibrarySearch, EventPickSegment}:    StateSegmentChoice,
	{StateSegmentChoice, EventSegmentCreated}: StateLibrarySearch,
	{StateUploadFile, EventFile}:              StateUploadName,
	{StateUploadFile, EventFileNamed}:         StateUploadConfirm,
	{StateUploadConfirm, EventConfirm}:        StateIdle,
	{StateUploadConfirm, EventRename}:         StateUploadName,
	{StateUploadName, EventName}:              StateUploadAuthor,
	{StateUploadAuthor, EventAuthor}:          StateIdle,
	{StateAutoDJHours, EventHours}:            StateIdle,
}

// Transition returns the state reached from given one by event.
func Transition(from State, event Event) (State, error) {
	if event == EventStartUnknown {
		return StateAwaitLogin, nil
	}

	if from.Authenticated() {
		if to, ok := menuEvents[event]; ok {
			return to, nil
		}
	}

	if to, ok := transitions[edge{from, event}]; ok {
		return to, nil
	}

	return from, fmt.Errorf("%w: %s in state %s", ErrUnexpectedEvent, event, from)
}
