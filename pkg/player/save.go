package player

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaveData is the persisted form of a player.
type SaveData struct {
	Uuid      string  `msgpack:"uuid"`
	Name      string  `msgpack:"name"`
	Species   string  `msgpack:"species"`
	Mode      string  `msgpack:"mode"`
	PositionX float32 `msgpack:"x"`
	PositionY float32 `msgpack:"y"`
	Health    float32 `msgpack:"health"`
	MaxHealth float32 `msgpack:"max_health"`
	Dead      bool    `msgpack:"dead"`
}

// LoadMaster rebuilds a player from save data.
func LoadMaster(data SaveData, logger *zap.Logger) (*Master, error) {
	id, err := uuid.Parse(data.Uuid)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(data.Mode)
	if err != nil {
		return nil, err
	}

	m := CreateMaster(MasterParams{
		Identity: Identity{
			Uuid:    id,
			Name:    data.Name,
			Species: data.Species,
			Mode:    mode,
		},
		Position:  mgl32.Vec2{data.PositionX, data.PositionY},
		MaxHealth: data.MaxHealth,
		Logger:    logger,
	})
	if data.Dead {
		m.Kill()
	} else if data.Health > 0 && data.Health < m.MaxHealth() {
		m.state.health.Set(data.Health)
	}
	return m, nil
}
