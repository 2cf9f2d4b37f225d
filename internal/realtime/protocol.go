// Package realtime routes ticket events to live connections. Connections
// join rooms named after tickets; publishers address a room or everyone.
// Delivery is at-most-once and process-local unless a Relay is attached.
package realtime

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client to server frame names.
const (
	FrameJoinTicket  = "join-ticket"
	FrameLeaveTicket = "leave-ticket"
)

// Server acknowledgements sent once membership has changed.
const (
	FrameJoined = "joined"
	FrameLeft   = "left"
	FrameError  = "error"
)

const (
	roomPrefix     = "ticket:"
	maxTicketIDLen = 128
)

// ErrBadFrame is returned for frames that cannot be routed.
var ErrBadFrame = errors.New("realtime: malformed frame")

// Frame is the JSON envelope used in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomName returns the room key for a ticket.
func RoomName(ticketID string) string {
	return roomPrefix + ticketID
}

// EncodeFrame marshals an outbound frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// DecodeClientFrame parses a join-ticket or leave-ticket frame and returns
// its name and ticket id. Data may be a bare string or {"ticketId": "..."}.
func DecodeClientFrame(raw []byte) (string, string, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", "", ErrBadFrame
	}
	if frame.Event != FrameJoinTicket && frame.Event != FrameLeaveTicket {
		return "", "", ErrBadFrame
	}

	var ticketID string
	if err := json.Unmarshal(frame.Data, &ticketID); err != nil {
		var obj struct {
			TicketID string `json:"ticketId"`
		}
		if err := json.Unmarshal(frame.Data, &obj); err != nil {
			return "", "", ErrBadFrame
		}
		ticketID = obj.TicketID
	}

	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" || len(ticketID) > maxTicketIDLen {
		return "", "", ErrBadFrame
	}
	return frame.Event, ticketID, nil
}
