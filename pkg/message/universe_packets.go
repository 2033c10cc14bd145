package message

import (
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/clientcontext"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/warp"
)

//
// Handshake

type ProtocolRequest struct {
	Version uint32
	// Extended advertises support for compressed framing.
	Extended bool
}

func (p *ProtocolRequest) Type() PacketType { return PacketType_ProtocolRequest }

func (p *ProtocolRequest) Write(w *datastream.Writer) {
	w.WriteUint32(p.Version)
	w.WriteBool(p.Extended)
}

func (p *ProtocolRequest) Read(r *datastream.Reader) error {
	p.Version = r.ReadUint32()
	p.Extended = r.ReadBool()
	return r.Err()
}

type ProtocolResponse struct {
	Allowed  bool
	Extended bool
	Info     string
}

func (p *ProtocolResponse) Type() PacketType { return PacketType_ProtocolResponse }

func (p *ProtocolResponse) Write(w *datastream.Writer) {
	w.WriteBool(p.Allowed)
	w.WriteBool(p.Extended)
	w.WriteString(p.Info)
}

func (p *ProtocolResponse) Read(r *datastream.Reader) error {
	p.Allowed = r.ReadBool()
	p.Extended = r.ReadBool()
	p.Info = r.ReadString()
	return r.Err()
}

type ClientConnect struct {
	AssetsDigest        []byte
	AllowAssetsMismatch bool
	PlayerUuid          uuid.UUID
	PlayerName          string
	PlayerSpecies       string
	ShipChunks          []byte
	ShipUpgrades        clientcontext.ShipUpgrades
	IntroComplete       bool
	Account             string
}

func (p *ClientConnect) Type() PacketType { return PacketType_ClientConnect }

func (p *ClientConnect) Write(w *datastream.Writer) {
	w.WriteBytes(p.AssetsDigest)
	w.WriteBool(p.AllowAssetsMismatch)
	w.WriteUUID(p.PlayerUuid)
	w.WriteString(p.PlayerName)
	w.WriteString(p.PlayerSpecies)
	w.WriteBytes(p.ShipChunks)
	p.ShipUpgrades.Write(w)
	w.WriteBool(p.IntroComplete)
	w.WriteString(p.Account)
}

func (p *ClientConnect) Read(r *datastream.Reader) error {
	p.AssetsDigest = r.ReadBytes()
	p.AllowAssetsMismatch = r.ReadBool()
	p.PlayerUuid = r.ReadUUID()
	p.PlayerName = r.ReadString()
	p.PlayerSpecies = r.ReadString()
	p.ShipChunks = r.ReadBytes()
	p.ShipUpgrades = clientcontext.ReadShipUpgrades(r)
	p.IntroComplete = r.ReadBool()
	p.Account = r.ReadString()
	return r.Err()
}

type HandshakeChallenge struct {
	PasswordSalt []byte
}

func (p *HandshakeChallenge) Type() PacketType { return PacketType_HandshakeChallenge }

func (p *HandshakeChallenge) Write(w *datastream.Writer) {
	w.WriteBytes(p.PasswordSalt)
}

func (p *HandshakeChallenge) Read(r *datastream.Reader) error {
	p.PasswordSalt = r.ReadBytes()
	return r.Err()
}

type HandshakeResponse struct {
	PasswordHash []byte
}

func (p *HandshakeResponse) Type() PacketType { return PacketType_HandshakeResponse }

func (p *HandshakeResponse) Write(w *datastream.Writer) {
	w.WriteBytes(p.PasswordHash)
}

func (p *HandshakeResponse) Read(r *datastream.Reader) error {
	p.PasswordHash = r.ReadBytes()
	return r.Err()
}

type ConnectSuccess struct {
	ClientId   uint16
	ServerUuid uuid.UUID
	Celestial  celestial.BaseInformation
}

func (p *ConnectSuccess) Type() PacketType { return PacketType_ConnectSuccess }

func (p *ConnectSuccess) Write(w *datastream.Writer) {
	w.WriteUint16(p.ClientId)
	w.WriteUUID(p.ServerUuid)
	p.Celestial.Write(w)
}

func (p *ConnectSuccess) Read(r *datastream.Reader) error {
	p.ClientId = r.ReadUint16()
	p.ServerUuid = r.ReadUUID()
	p.Celestial = celestial.ReadBaseInformation(r)
	return r.Err()
}

type ConnectFailure struct {
	Reason string
}

func (p *ConnectFailure) Type() PacketType { return PacketType_ConnectFailure }

func (p *ConnectFailure) Write(w *datastream.Writer) {
	w.WriteString(p.Reason)
}

func (p *ConnectFailure) Read(r *datastream.Reader) error {
	p.Reason = r.ReadString()
	return r.Err()
}

//
// Session

type ServerDisconnect struct {
	Reason string
}

func (p *ServerDisconnect) Type() PacketType { return PacketType_ServerDisconnect }

func (p *ServerDisconnect) Write(w *datastream.Writer) {
	w.WriteString(p.Reason)
}

func (p *ServerDisconnect) Read(r *datastream.Reader) error {
	p.Reason = r.ReadString()
	return r.Err()
}

type ClientDisconnectRequest struct{}

func (p *ClientDisconnectRequest) Type() PacketType { return PacketType_ClientDisconnectRequest }

func (p *ClientDisconnectRequest) Write(*datastream.Writer) {}

func (p *ClientDisconnectRequest) Read(r *datastream.Reader) error {
	return r.Err()
}

type ClientContextUpdate struct {
	Data []byte
}

func (p *ClientContextUpdate) Type() PacketType { return PacketType_ClientContextUpdate }

func (p *ClientContextUpdate) Write(w *datastream.Writer) {
	w.WriteBytes(p.Data)
}

func (p *ClientContextUpdate) Read(r *datastream.Reader) error {
	p.Data = r.ReadBytes()
	return r.Err()
}

type UniverseTimeUpdate struct {
	UniverseTime float64
}

func (p *UniverseTimeUpdate) Type() PacketType { return PacketType_UniverseTimeUpdate }

func (p *UniverseTimeUpdate) Write(w *datastream.Writer) {
	w.WriteFloat64(p.UniverseTime)
}

func (p *UniverseTimeUpdate) Read(r *datastream.Reader) error {
	p.UniverseTime = r.ReadFloat64()
	return r.Err()
}

type Pause struct {
	Pause     bool
	TimeScale float32
}

func (p *Pause) Type() PacketType { return PacketType_Pause }

func (p *Pause) Write(w *datastream.Writer) {
	w.WriteBool(p.Pause)
	w.WriteFloat32(p.TimeScale)
}

func (p *Pause) Read(r *datastream.Reader) error {
	p.Pause = r.ReadBool()
	p.TimeScale = r.ReadFloat32()
	return r.Err()
}

type ServerInfo struct {
	Players    uint16
	MaxPlayers uint16
}

func (p *ServerInfo) Type() PacketType { return PacketType_ServerInfo }

func (p *ServerInfo) Write(w *datastream.Writer) {
	w.WriteUint16(p.Players)
	w.WriteUint16(p.MaxPlayers)
}

func (p *ServerInfo) Read(r *datastream.Reader) error {
	p.Players = r.ReadUint16()
	p.MaxPlayers = r.ReadUint16()
	return r.Err()
}

//
// Chat

type ChatSendMode uint8

const (
	ChatSendMode_Broadcast ChatSendMode = iota
	ChatSendMode_Local
	ChatSendMode_Party
)

type ChatMode uint8

const (
	ChatMode_Local ChatMode = iota
	ChatMode_Party
	ChatMode_Broadcast
	ChatMode_Whisper
	ChatMode_CommandResult
	ChatMode_RadioMessage
	ChatMode_World
)

type ChatMessageContext struct {
	Mode    ChatMode
	Channel string
}

type ChatSend struct {
	Text string
	Mode ChatSendMode
}

func (p *ChatSend) Type() PacketType { return PacketType_ChatSend }

func (p *ChatSend) Write(w *datastream.Writer) {
	w.WriteString(p.Text)
	w.WriteUint8(uint8(p.Mode))
}

func (p *ChatSend) Read(r *datastream.Reader) error {
	p.Text = r.ReadString()
	p.Mode = ChatSendMode(r.ReadUint8())
	if err := r.Err(); err != nil {
		return err
	}
	if p.Mode > ChatSendMode_Party {
		return &errors.InvalidEnumValue{EnumName: "ChatSendMode", IntValue: uint8(p.Mode)}
	}
	return nil
}

type ChatReceive struct {
	Context        ChatMessageContext
	FromConnection uint16
	FromNick       string
	Portrait       string
	Text           string
}

func (p *ChatReceive) Type() PacketType { return PacketType_ChatReceive }

func (p *ChatReceive) Write(w *datastream.Writer) {
	w.WriteUint8(uint8(p.Context.Mode))
	w.WriteString(p.Context.Channel)
	w.WriteUint16(p.FromConnection)
	w.WriteString(p.FromNick)
	w.WriteString(p.Portrait)
	w.WriteString(p.Text)
}

func (p *ChatReceive) Read(r *datastream.Reader) error {
	p.Context.Mode = ChatMode(r.ReadUint8())
	p.Context.Channel = r.ReadString()
	p.FromConnection = r.ReadUint16()
	p.FromNick = r.ReadString()
	p.Portrait = r.ReadString()
	p.Text = r.ReadString()
	if err := r.Err(); err != nil {
		return err
	}
	if p.Context.Mode > ChatMode_World {
		return &errors.InvalidEnumValue{EnumName: "ChatMode", IntValue: uint8(p.Context.Mode)}
	}
	return nil
}

//
// Warping

type PlayerWarp struct {
	Action warp.Action
	Deploy bool
}

func (p *PlayerWarp) Type() PacketType { return PacketType_PlayerWarp }

func (p *PlayerWarp) Write(w *datastream.Writer) {
	p.Action.Write(w)
	w.WriteBool(p.Deploy)
}

func (p *PlayerWarp) Read(r *datastream.Reader) error {
	action, err := warp.ReadAction(r)
	if err != nil {
		return err
	}
	p.Action = action
	p.Deploy = r.ReadBool()
	return r.Err()
}

type PlayerWarpResult struct {
	Success       bool
	Action        warp.Action
	ActionInvalid bool
}

func (p *PlayerWarpResult) Type() PacketType { return PacketType_PlayerWarpResult }

func (p *PlayerWarpResult) Write(w *datastream.Writer) {
	w.WriteBool(p.Success)
	p.Action.Write(w)
	w.WriteBool(p.ActionInvalid)
}

func (p *PlayerWarpResult) Read(r *datastream.Reader) error {
	p.Success = r.ReadBool()
	action, err := warp.ReadAction(r)
	if err != nil {
		return err
	}
	p.Action = action
	p.ActionInvalid = r.ReadBool()
	return r.Err()
}

//
// Celestial

type CelestialRequest struct {
	Coordinates []celestial.Coordinate
}

func (p *CelestialRequest) Type() PacketType { return PacketType_CelestialRequest }

func (p *CelestialRequest) Write(w *datastream.Writer) {
	w.WriteVarUint(uint64(len(p.Coordinates)))
	for _, c := range p.Coordinates {
		c.Write(w)
	}
}

func (p *CelestialRequest) Read(r *datastream.Reader) error {
	n := r.ReadVarUint()
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		p.Coordinates = append(p.Coordinates, celestial.ReadCoordinate(r))
	}
	return r.Err()
}

type CelestialResponse struct {
	Parameters []celestial.Parameters
}

func (p *CelestialResponse) Type() PacketType { return PacketType_CelestialResponse }

func (p *CelestialResponse) Write(w *datastream.Writer) {
	w.WriteVarUint(uint64(len(p.Parameters)))
	for _, c := range p.Parameters {
		c.Write(w)
	}
}

func (p *CelestialResponse) Read(r *datastream.Reader) error {
	n := r.ReadVarUint()
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		p.Parameters = append(p.Parameters, celestial.ReadParameters(r))
	}
	return r.Err()
}

type PlanetTypeUpdate struct {
	Coordinate celestial.Coordinate
}

func (p *PlanetTypeUpdate) Type() PacketType { return PacketType_PlanetTypeUpdate }

func (p *PlanetTypeUpdate) Write(w *datastream.Writer) {
	p.Coordinate.Write(w)
}

func (p *PlanetTypeUpdate) Read(r *datastream.Reader) error {
	p.Coordinate = celestial.ReadCoordinate(r)
	return r.Err()
}
