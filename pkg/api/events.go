package api

// EventType identifies the kind of a connection event.
type EventType string

// Events delivered by the transport through the receive operation.
const (
	EventRequestBody       EventType = "request.body"
	EventMessageReceive    EventType = "message.receive"
	EventLifecycleStartup  EventType = "lifecycle.startup"
	EventLifecycleShutdown EventType = "lifecycle.shutdown"
)

// Events the application sends back through the send operation.
const (
	EventResponseStart             EventType = "response.start"
	EventResponseBody              EventType = "response.body"
	EventMessageSend               EventType = "message.send"
	EventLifecycleStartupComplete  EventType = "lifecycle.startup.complete"
	EventLifecycleShutdownComplete EventType = "lifecycle.shutdown.complete"
)

// Event is one tagged transport event. Only the fields relevant to its
// Type are set: Status and Headers on response.start, Body and More on
// request and response body chunks, Body alone on message events, nothing
// beyond the tag on lifecycle signals and acknowledgments.
//
// More marks a body chunk as continued: further chunks of the same payload
// follow. The final chunk of a payload carries More=false.
type Event struct {
	Type    EventType
	Status  int
	Headers []RawHeader
	Body    []byte
	More    bool
}
