package worldclient

import (
	"time"

	"github.com/sessamekesh/universe-client/pkg/tile"
)

type prediction struct {
	tile    tile.Tile
	expires time.Time
}

// TileStore is the client's copy of the tile grid. Server confirmed tiles and
// local predictions are kept apart so a prediction can always be rolled back
// to exactly what the server last said.
type TileStore struct {
	confirmed   map[tile.Pos]tile.Tile
	predictions map[tile.Pos]prediction
	timeout     time.Duration
}

func NewTileStore(predictionTimeout time.Duration) *TileStore {
	return &TileStore{
		confirmed:   make(map[tile.Pos]tile.Tile),
		predictions: make(map[tile.Pos]prediction),
		timeout:     predictionTimeout,
	}
}

// Get returns the tile as the player should see it: a pending prediction if
// there is one, otherwise the confirmed tile.
func (s *TileStore) Get(pos tile.Pos) (tile.Tile, bool) {
	if p, has := s.predictions[pos]; has {
		return p.tile, true
	}
	t, has := s.confirmed[pos]
	return t, has
}

func (s *TileStore) Confirmed(pos tile.Pos) (tile.Tile, bool) {
	t, has := s.confirmed[pos]
	return t, has
}

func (s *TileStore) IsPredicted(pos tile.Pos) bool {
	_, has := s.predictions[pos]
	return has
}

func (s *TileStore) Len() int {
	return len(s.confirmed)
}

func (s *TileStore) PredictionCount() int {
	return len(s.predictions)
}

// ApplyServer records the server's value for pos. A prediction the server
// now agrees with is settled; one it disagrees with stays until it expires,
// since the server may not have processed the edit yet.
func (s *TileStore) ApplyServer(pos tile.Pos, t tile.Tile) {
	s.confirmed[pos] = t
	if p, has := s.predictions[pos]; has && p.tile == t {
		delete(s.predictions, pos)
	}
}

// Predict applies mod locally and returns the predicted tile.
func (s *TileStore) Predict(mod tile.Modification, now time.Time) tile.Tile {
	current, _ := s.Get(mod.Pos)
	predicted := mod.Apply(current)
	s.predictions[mod.Pos] = prediction{tile: predicted, expires: now.Add(s.timeout)}
	return predicted
}

// Expire drops predictions whose timeout has passed and returns their
// positions.
func (s *TileStore) Expire(now time.Time) []tile.Pos {
	var rolledBack []tile.Pos
	for pos, p := range s.predictions {
		if !now.Before(p.expires) {
			delete(s.predictions, pos)
			rolledBack = append(rolledBack, pos)
		}
	}
	return rolledBack
}

// Rollback drops the predictions for positions the server refused.
func (s *TileStore) Rollback(positions ...tile.Pos) int {
	n := 0
	for _, pos := range positions {
		if _, has := s.predictions[pos]; has {
			delete(s.predictions, pos)
			n++
		}
	}
	return n
}

// Evict forgets every tile and prediction outside keep.
func (s *TileStore) Evict(keep tile.Rect) int {
	n := 0
	for pos := range s.confirmed {
		if !keep.Contains(pos) {
			delete(s.confirmed, pos)
			n++
		}
	}
	for pos := range s.predictions {
		if !keep.Contains(pos) {
			delete(s.predictions, pos)
		}
	}
	return n
}

func (s *TileStore) Clear() {
	clear(s.confirmed)
	clear(s.predictions)
}
