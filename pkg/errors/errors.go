package errors

import "fmt"

type Underflow struct {
	MessageName string
	MsgSize     int
	MinimumSize int
}

func (e *Underflow) Error() string {
	return fmt.Sprintf("Message parsing underflowed (type=%s), provided %d bytes, needed at least %d", e.MessageName, e.MsgSize, e.MinimumSize)
}

type InvalidEnumValue struct {
	EnumName string
	IntValue uint8
}

func (e *InvalidEnumValue) Error() string {
	return fmt.Sprintf("Invalid enum value=%d (enum: %s)", e.IntValue, e.EnumName)
}

type InvalidHeaderVersion struct {
	ExpectedMagicNumber uint32
	ActualMagicNumber   uint32
}

func (e *InvalidHeaderVersion) Error() string {
	return fmt.Sprintf("Invalid frame header: expected MagicNumber=%d, got MagicNumber=%d", e.ExpectedMagicNumber, e.ActualMagicNumber)
}

type MissingFieldError struct {
	MessageName string
	FieldName   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing field %s in message type %s", e.FieldName, e.MessageName)
}

type NameCollision struct {
	CollisionContext string
	Name             string
}

func (e *NameCollision) Error() string {
	return fmt.Sprintf("Name collision for name '%s' in context '%s'", e.Name, e.CollisionContext)
}

type PacketTooLarge struct {
	PacketType string
	Size       int
	Limit      int
}

func (e *PacketTooLarge) Error() string {
	return fmt.Sprintf("Packet %s is %d bytes, limit is %d", e.PacketType, e.Size, e.Limit)
}

// VersionGap is returned when a net state diff starts after the version the
// reader has already applied, meaning an intermediate delta was lost.
type VersionGap struct {
	AppliedVersion uint64
	DiffSince      uint64
}

func (e *VersionGap) Error() string {
	return fmt.Sprintf("Net state diff starts at version %d but only version %d has been applied", e.DiffSince, e.AppliedVersion)
}

type ConnectionClosed struct {
	Reason string
}

func (e *ConnectionClosed) Error() string {
	if e.Reason == "" {
		return "Connection closed"
	}
	return fmt.Sprintf("Connection closed: %s", e.Reason)
}

type UnexpectedPacket struct {
	Context    string
	PacketType string
}

func (e *UnexpectedPacket) Error() string {
	return fmt.Sprintf("Unexpected packet %s during %s", e.PacketType, e.Context)
}

type ConnectStage uint8

const (
	ConnectStage_ProtocolNegotiation ConnectStage = iota
	ConnectStage_ConnectRequest
	ConnectStage_Challenge
	ConnectStage_Resolution
)

func (s ConnectStage) String() string {
	switch s {
	case ConnectStage_ProtocolNegotiation:
		return "ProtocolNegotiation"
	case ConnectStage_ConnectRequest:
		return "ConnectRequest"
	case ConnectStage_Challenge:
		return "Challenge"
	case ConnectStage_Resolution:
		return "Resolution"
	}
	return "Unknown"
}

// ConnectError is the terminal failure of a connection attempt. Reason is
// already formatted for display to the player.
type ConnectError struct {
	Stage     ConnectStage
	Reason    string
	IsTimeout bool
}

func (e *ConnectError) Error() string {
	return e.Reason
}

// RpcFailure is the error side of a remote call that the peer answered with
// a failure, or that was abandoned when the session ended.
type RpcFailure struct {
	Method  string
	Message string
}

func (e *RpcFailure) Error() string {
	return fmt.Sprintf("Remote call %s failed: %s", e.Method, e.Message)
}
