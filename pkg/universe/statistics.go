package universe

import (
	"time"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/storage"
	"go.uber.org/zap"
)

type Statistics struct {
	Deaths              uint32        `msgpack:"deaths"`
	Warps               uint32        `msgpack:"warps"`
	ChatMessagesSent    uint32        `msgpack:"chat_sent"`
	ChatMessagesDropped uint32        `msgpack:"chat_dropped"`
	PlayTime            time.Duration `msgpack:"play_time"`
}

// SaveRecord is what the client persists for a player.
type SaveRecord struct {
	SavedAt    time.Time       `msgpack:"saved_at"`
	Player     player.SaveData `msgpack:"player"`
	Statistics Statistics      `msgpack:"statistics"`
}

// LoadSave reads a player's save record.
func LoadSave(s *storage.PlayerStorage, id uuid.UUID) (SaveRecord, error) {
	var rec SaveRecord
	err := s.Load(id, &rec)
	return rec, err
}

func (c *UniverseClient) save() {
	if c.params.Storage == nil {
		return
	}
	rec := SaveRecord{
		SavedAt:    c.params.Now(),
		Player:     c.player.SaveData(),
		Statistics: c.stats,
	}
	if err := c.params.Storage.Save(c.player.Uuid(), &rec); err != nil {
		c.log.Error("Failed to save player", zap.Error(err))
	}
}

// SwapPlayer saves the current player and continues the session as identity,
// with stats as its counters. It refuses while a warp is in flight or the
// player is dead. The client context keeps the uuid the session joined with.
func (c *UniverseClient) SwapPlayer(identity player.Identity, stats Statistics) bool {
	if c.warp.Warping() || c.player.IsDead() {
		return false
	}

	c.save()
	previous := c.player.Identity()
	c.player.SetIdentity(identity)
	c.log = c.log.With(zap.String("player", identity.Name))
	c.log.Info("Swapped player", zap.Stringer("from", previous.Uuid), zap.Stringer("to", identity.Uuid))

	c.respawn.reset()
	c.stats = stats
	c.lastSave = c.params.Now()

	if c.session != nil {
		c.session.world.RepublishPlayer()
	}
	return true
}
