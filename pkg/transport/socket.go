// Package transport carries framed packets between the client and a server.
// A Socket moves opaque frames; a Connection layers typed packets, framing
// negotiation and traffic statistics on top of one.
package transport

// Socket is a reliable, ordered, bidirectional frame stream.
//
// Frames delivers incoming frames and is never closed. Done is closed once the
// socket is closed from either side; frames already buffered in Frames are
// still readable after that.
type Socket interface {
	WriteFrame(frame []byte) error
	Frames() <-chan []byte
	Done() <-chan struct{}
	// Err is the reason the socket closed, or nil while it is open or after a
	// clean local Close.
	Err() error
	Close() error
}
