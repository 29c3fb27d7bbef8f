package live

// MessageType is the first byte of every binary frame
type MessageType uint8

const (
	// FrameRender carries a rendered chart to the client
	FrameRender  MessageType = 0x00
	FrameEvent   MessageType = 0x01
	FrameControl MessageType = 0x02
)

// EventType identifies a client event
type EventType uint8

const (
	EventMove   EventType = 0x01
	EventDown   EventType = 0x02
	EventUp     EventType = 0x03
	EventLeave  EventType = 0x04
	EventClick  EventType = 0x05
	EventScroll EventType = 0x06
	EventEscape EventType = 0x07
	EventResize EventType = 0x08
	EventAccept EventType = 0x09
	EventKind   EventType = 0x0a
)

func (t EventType) String() string {
	switch t {
	case EventMove:
		return "move"
	case EventDown:
		return "down"
	case EventUp:
		return "up"
	case EventLeave:
		return "leave"
	case EventClick:
		return "click"
	case EventScroll:
		return "scroll"
	case EventEscape:
		return "escape"
	case EventResize:
		return "resize"
	case EventAccept:
		return "accept"
	case EventKind:
		return "kind"
	}
	return "unknown"
}

// Event is one client event. X and Y are viewport cells for pointer events,
// offsets for Scroll, the viewport size for Resize and, for Kind, the index
// in X of the view or chart kind to show.
type Event struct {
	Type EventType
	X, Y float64
}

// Render is a frame pushed to the client after the chart changed
type Render struct {
	Seq    uint64
	Status string
	Frame  string
}
