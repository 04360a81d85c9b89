package model

import (
	"encoding/json"
	"fmt"
)

type TestEventType string

const (
	EventTypeUserAction     TestEventType = "user-action"
	EventTypeNavigation     TestEventType = "navigation"
	EventTypeNetworkRequest TestEventType = "network-request"
)

// TestEvent is a closed union of UserActionEvent, NavigationEvent and NetworkRequestEvent.
// Consumers are expected to switch over the concrete type.
type TestEvent interface {
	Type() TestEventType
	// SortPoint returns the point that orders the event within its section.
	// ok is false if the event carries no timing information.
	SortPoint() (p ExecutionPoint, ok bool)

	isTestEvent()
}

type UserActionResult struct {
	TimeStampedPoint TimeStampedPoint `json:"timeStampedPoint"`
	Variable         string           `json:"variable"`
}

type UserActionData struct {
	Category Category   `json:"category"`
	Command  Command    `json:"command"`
	Error    *TestError `json:"error"`
	ID       string     `json:"id"`
	// ParentID is set for chained commands.
	ParentID                   *string           `json:"parentId"`
	Result                     *UserActionResult `json:"result"`
	CallStack                  []StackFrame      `json:"callStack,omitempty"`
	ViewSourceTimeStampedPoint *TimeStampedPoint `json:"viewSourceTimeStampedPoint"`
}

type UserActionEvent struct {
	Data UserActionData `json:"data"`
	// TimeStampedPointRange is nil for runners without annotations.
	TimeStampedPointRange *TimeStampedPointRange `json:"timeStampedPointRange"`
}

func (UserActionEvent) Type() TestEventType { return EventTypeUserAction }

func (e UserActionEvent) SortPoint() (ExecutionPoint, bool) {
	if e.TimeStampedPointRange == nil {
		return "", false
	}

	return e.TimeStampedPointRange.Begin.Point, true
}

func (UserActionEvent) isTestEvent() {}

func (e UserActionEvent) MarshalJSON() ([]byte, error) {
	type alias UserActionEvent

	return json.Marshal(struct {
		Type TestEventType `json:"type"`
		alias
	}{Type: e.Type(), alias: alias(e)})
}

type NavigationData struct {
	URL string `json:"url"`
}

type NavigationEvent struct {
	Data             NavigationData   `json:"data"`
	TimeStampedPoint TimeStampedPoint `json:"timeStampedPoint"`
}

func (NavigationEvent) Type() TestEventType { return EventTypeNavigation }

func (e NavigationEvent) SortPoint() (ExecutionPoint, bool) {
	return e.TimeStampedPoint.Point, true
}

func (NavigationEvent) isTestEvent() {}

func (e NavigationEvent) MarshalJSON() ([]byte, error) {
	type alias NavigationEvent

	return json.Marshal(struct {
		Type TestEventType `json:"type"`
		alias
	}{Type: e.Type(), alias: alias(e)})
}

type NetworkRequestInfo struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type NetworkResponseInfo struct {
	Status int `json:"status"`
}

type NetworkRequestData struct {
	Request  NetworkRequestInfo   `json:"request"`
	Response *NetworkResponseInfo `json:"response"`
}

type NetworkRequestEvent struct {
	Data             NetworkRequestData `json:"data"`
	TimeStampedPoint TimeStampedPoint   `json:"timeStampedPoint"`
}

func (NetworkRequestEvent) Type() TestEventType { return EventTypeNetworkRequest }

func (e NetworkRequestEvent) SortPoint() (ExecutionPoint, bool) {
	return e.TimeStampedPoint.Point, true
}

func (NetworkRequestEvent) isTestEvent() {}

func (e NetworkRequestEvent) MarshalJSON() ([]byte, error) {
	type alias NetworkRequestEvent

	return json.Marshal(struct {
		Type TestEventType `json:"type"`
		alias
	}{Type: e.Type(), alias: alias(e)})
}

// Events is a list of test events that can be decoded from its tagged JSON form.
type Events []TestEvent

func (es *Events) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	events := make(Events, 0, len(raw))

	for i, r := range raw {
		e, err := unmarshalEvent(r)
		if err != nil {
			return fmt.Errorf("decoding event %d: %w", i, err)
		}

		events = append(events, e)
	}

	*es = events

	return nil
}

func unmarshalEvent(data []byte) (TestEvent, error) {
	var tag struct {
		Type TestEventType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Type {
	case EventTypeUserAction:
		var e UserActionEvent
		err := json.Unmarshal(data, &e)
		return e, err
	case EventTypeNavigation:
		var e NavigationEvent
		err := json.Unmarshal(data, &e)
		return e, err
	case EventTypeNetworkRequest:
		var e NetworkRequestEvent
		err := json.Unmarshal(data, &e)
		return e, err
	}

	return nil, fmt.Errorf("unknown event type %q", tag.Type)
}
