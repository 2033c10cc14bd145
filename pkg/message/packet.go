package message

import (
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

type PacketType uint8

const (
	// Server -> client
	PacketType_ProtocolResponse PacketType = iota
	PacketType_ServerDisconnect
	PacketType_ConnectSuccess
	PacketType_ConnectFailure
	PacketType_HandshakeChallenge
	PacketType_ChatReceive
	PacketType_UniverseTimeUpdate
	PacketType_CelestialResponse
	PacketType_PlayerWarpResult
	PacketType_PlanetTypeUpdate
	PacketType_Pause
	PacketType_ServerInfo

	// Client -> server
	PacketType_ProtocolRequest
	PacketType_ClientConnect
	PacketType_ClientDisconnectRequest
	PacketType_HandshakeResponse
	PacketType_PlayerWarp
	PacketType_ChatSend
	PacketType_CelestialRequest

	// Both directions
	PacketType_ClientContextUpdate

	// World, server -> client
	PacketType_WorldStart
	PacketType_WorldStop
	PacketType_TileArrayUpdate
	PacketType_TileUpdate
	PacketType_TileModificationFailure
	PacketType_StepUpdate

	// World, client -> server
	PacketType_ModifyTileList
	PacketType_WorldClientStateUpdate

	// World, both directions
	PacketType_EntityCreate
	PacketType_EntityUpdateSet
	PacketType_EntityDestroy

	PacketType_NONE
)

var packetTypeNames = [...]string{
	"ProtocolResponse",
	"ServerDisconnect",
	"ConnectSuccess",
	"ConnectFailure",
	"HandshakeChallenge",
	"ChatReceive",
	"UniverseTimeUpdate",
	"CelestialResponse",
	"PlayerWarpResult",
	"PlanetTypeUpdate",
	"Pause",
	"ServerInfo",
	"ProtocolRequest",
	"ClientConnect",
	"ClientDisconnectRequest",
	"HandshakeResponse",
	"PlayerWarp",
	"ChatSend",
	"CelestialRequest",
	"ClientContextUpdate",
	"WorldStart",
	"WorldStop",
	"TileArrayUpdate",
	"TileUpdate",
	"TileModificationFailure",
	"StepUpdate",
	"ModifyTileList",
	"WorldClientStateUpdate",
	"EntityCreate",
	"EntityUpdateSet",
	"EntityDestroy",
}

func (t PacketType) String() string {
	if int(t) < len(packetTypeNames) {
		return packetTypeNames[t]
	}
	return "Unknown"
}

// Packet is a typed wire message. Write and Read encode only the body; the
// serializer handles the frame header.
type Packet interface {
	Type() PacketType
	Write(w *datastream.Writer)
	Read(r *datastream.Reader) error
}

func newPacket(t PacketType) (Packet, error) {
	switch t {
	case PacketType_ProtocolResponse:
		return &ProtocolResponse{}, nil
	case PacketType_ServerDisconnect:
		return &ServerDisconnect{}, nil
	case PacketType_ConnectSuccess:
		return &ConnectSuccess{}, nil
	case PacketType_ConnectFailure:
		return &ConnectFailure{}, nil
	case PacketType_HandshakeChallenge:
		return &HandshakeChallenge{}, nil
	case PacketType_ChatReceive:
		return &ChatReceive{}, nil
	case PacketType_UniverseTimeUpdate:
		return &UniverseTimeUpdate{}, nil
	case PacketType_CelestialResponse:
		return &CelestialResponse{}, nil
	case PacketType_PlayerWarpResult:
		return &PlayerWarpResult{}, nil
	case PacketType_PlanetTypeUpdate:
		return &PlanetTypeUpdate{}, nil
	case PacketType_Pause:
		return &Pause{}, nil
	case PacketType_ServerInfo:
		return &ServerInfo{}, nil
	case PacketType_ProtocolRequest:
		return &ProtocolRequest{}, nil
	case PacketType_ClientConnect:
		return &ClientConnect{}, nil
	case PacketType_ClientDisconnectRequest:
		return &ClientDisconnectRequest{}, nil
	case PacketType_HandshakeResponse:
		return &HandshakeResponse{}, nil
	case PacketType_PlayerWarp:
		return &PlayerWarp{}, nil
	case PacketType_ChatSend:
		return &ChatSend{}, nil
	case PacketType_CelestialRequest:
		return &CelestialRequest{}, nil
	case PacketType_ClientContextUpdate:
		return &ClientContextUpdate{}, nil
	case PacketType_WorldStart:
		return &WorldStart{}, nil
	case PacketType_WorldStop:
		return &WorldStop{}, nil
	case PacketType_TileArrayUpdate:
		return &TileArrayUpdate{}, nil
	case PacketType_TileUpdate:
		return &TileUpdate{}, nil
	case PacketType_TileModificationFailure:
		return &TileModificationFailure{}, nil
	case PacketType_StepUpdate:
		return &StepUpdate{}, nil
	case PacketType_ModifyTileList:
		return &ModifyTileList{}, nil
	case PacketType_WorldClientStateUpdate:
		return &WorldClientStateUpdate{}, nil
	case PacketType_EntityCreate:
		return &EntityCreate{}, nil
	case PacketType_EntityUpdateSet:
		return &EntityUpdateSet{}, nil
	case PacketType_EntityDestroy:
		return &EntityDestroy{}, nil
	}

	return nil, &errors.InvalidEnumValue{
		EnumName: "PacketType",
		IntValue: uint8(t),
	}
}
