package universe

import (
	"time"

	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"go.uber.org/zap"
)

// WarpPlayer starts a warp. An empty animation uses the configured default.
// It reports false if disconnected or if a warp is already in flight.
func (c *UniverseClient) WarpPlayer(action warp.Action, animation string, deploy bool) bool {
	if c.session == nil {
		return false
	}
	if animation == "" {
		animation = c.config.DefaultWarpAnimation
	}
	return c.startWarp(warp.Request{Action: action, Animation: animation, Deploy: deploy})
}

func (c *UniverseClient) startWarp(req warp.Request) bool {
	if !c.warp.Request(req) {
		c.log.Debug("Warp rejected, another warp is in flight", zap.Stringer("action", req.Action))
		return false
	}
	if req.Animation != "" {
		c.player.TeleportOut(req.Animation)
	}
	return true
}

func (c *UniverseClient) WarpState() warp.State {
	return c.warp.State()
}

// WarpCinemaActive reports whether the warp loading screen should be up.
func (c *UniverseClient) WarpCinemaActive() bool {
	return c.warp.CinemaActive()
}

// PullInvalidBookmarks returns and clears the bookmarks the server reported
// as unreachable.
func (c *UniverseClient) PullInvalidBookmarks() []string {
	out := c.invalidBookmarks
	c.invalidBookmarks = nil
	return out
}

func (c *UniverseClient) updateWarp(dt time.Duration) {
	tick := c.warp.Update(dt)

	if tick.Send != nil {
		c.session.conn.Push(&message.PlayerWarp{Action: tick.Send.Action, Deploy: tick.Send.Deploy})
		c.stats.Warps++
		c.log.Info("Requested warp", zap.Stringer("action", tick.Send.Action))
	}

	if out := tick.Resolved; out != nil {
		if out.Success {
			c.player.TeleportIn(out.Request.Animation)
		} else {
			c.player.TeleportAbort()
			c.log.Info("Warp failed", zap.Stringer("action", out.Request.Action))
		}
		if out.InvalidBookmark && out.Request.Action.Kind == warp.ActionKind_ToBookmark {
			c.invalidBookmarks = append(c.invalidBookmarks, out.Request.Action.Bookmark)
		}
		c.respawn.warpResolved(out.Success)
	}
}
