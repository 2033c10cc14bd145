package universe

import (
	"time"

	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"go.uber.org/zap"
)

// respawnState tracks the player between death and revival.
type respawnState struct {
	// dead is set once a death has been counted.
	dead bool
	// counting is set while the respawn countdown runs.
	counting bool
	timer    time.Duration
	// warping is set once the respawn warp to the player's ship was accepted.
	warping bool
}

func (r *respawnState) reset() {
	*r = respawnState{}
}

// warpResolved restarts the countdown if the respawn warp failed.
func (r *respawnState) warpResolved(success bool) {
	if r.warping && !success {
		r.warping = false
		r.counting = true
		r.timer = 0
	}
}

// RespawnPending reports whether the player is dead and waiting to respawn.
func (c *UniverseClient) RespawnPending() bool {
	return c.respawn.counting || c.respawn.warping
}

func (c *UniverseClient) updateRespawn(dt time.Duration) {
	if c.session == nil {
		return
	}

	if !c.player.IsDead() {
		if c.respawn.dead {
			c.respawn.reset()
		}
		return
	}

	if !c.respawn.dead {
		c.respawn.dead = true
		c.stats.Deaths++
		if c.player.IsPermaDead() {
			c.log.Info("Player died permanently")
			return
		}
		c.respawn.counting = true
		c.respawn.timer = c.config.RespawnDelay
		c.log.Info("Player died, respawning", zap.Duration("delay", c.config.RespawnDelay))
	}

	if !c.respawn.counting {
		return
	}
	c.respawn.timer -= dt
	if c.respawn.timer > 0 {
		return
	}

	world := c.session.world
	if world.InWorld() && world.RespawnInWorld() {
		if c.player.Revive(world.PlayerStart()) {
			c.log.Info("Respawned in place")
		}
		c.respawn.counting = false
		return
	}

	if c.startWarp(warp.Request{Action: warp.ToAlias(warp.Alias_OwnShip)}) {
		c.respawn.counting = false
		c.respawn.warping = true
	}
}

// worldStarted revives a player whose respawn warp brought them to a new
// world.
func (c *UniverseClient) worldStarted(start *message.WorldStart) {
	if !c.respawn.warping || !c.player.IsDead() {
		return
	}
	if c.player.Revive(start.PlayerStart) {
		c.log.Info("Respawned after warp")
	}
	c.respawn.warping = false
}
