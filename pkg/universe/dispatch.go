package universe

import (
	"fmt"

	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"go.uber.org/zap"
)

const maxBufferedChat = 256

// dispatch handles packets in receipt order. It reports false, and drops the
// rest of the batch, once the session has ended.
func (c *UniverseClient) dispatch(packets []message.Packet) bool {
	for _, p := range packets {
		if c.session == nil {
			return false
		}
		c.handlePacket(p)
	}
	return c.session != nil
}

func (c *UniverseClient) handlePacket(p message.Packet) {
	s := c.session
	now := c.params.Now()

	switch p := p.(type) {
	case *message.ServerDisconnect:
		c.teardown(p.Reason)

	case *message.ClientContextUpdate:
		if err := s.context.ReadUpdate(p.Data); err != nil {
			c.log.Error("Failed to apply client context update", zap.Error(err))
			c.teardown(fmt.Sprintf("Protocol error: %s", err.Error()))
		}

	case *message.ChatReceive:
		if len(c.chatMessages) >= maxBufferedChat {
			c.chatMessages = c.chatMessages[1:]
		}
		c.chatMessages = append(c.chatMessages, *p)

	case *message.UniverseTimeUpdate:
		c.clock.sync(p.UniverseTime, now)

	case *message.Pause:
		c.paused = p.Pause
		c.timeScale = p.TimeScale
		c.clock.pause(p.Pause, now)
		c.log.Debug("Server pause state changed", zap.Bool("paused", p.Pause), zap.Float32("timeScale", p.TimeScale))

	case *message.ServerInfo:
		info := *p
		c.serverInfo = &info

	case *message.PlayerWarpResult:
		accepted := c.warp.HandleResult(warp.Result{
			Success:       p.Success,
			Action:        p.Action,
			ActionInvalid: p.ActionInvalid,
		})
		if !accepted {
			c.log.Warn("Ignoring warp result with no warp in flight", zap.Stringer("action", p.Action))
		}

	case *message.CelestialResponse:
		s.celestial.PushResponses(p.Parameters)

	case *message.PlanetTypeUpdate:
		s.celestial.InvalidateType(p.Coordinate)

	default:
		handled, err := s.world.HandlePacket(p)
		if err != nil {
			c.log.Warn("Failed to apply world packet", zap.Stringer("type", p.Type()), zap.Error(err))
		}
		if !handled {
			c.log.Warn("Skipping packet", zap.Error(&errors.UnexpectedPacket{Context: "session", PacketType: p.Type().String()}))
			return
		}
		if start, ok := p.(*message.WorldStart); ok {
			c.worldStarted(start)
		}
	}
}
