// Package storage persists player save files. Each file is a magic number
// followed by a msgpack document, written atomically.
package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const saveMagic uint32 = 0x56534E55 // "UNSV"

type PlayerStorageParams struct {
	Directory string

	Logger *zap.Logger
}

type PlayerStorage struct {
	dir string
	log *zap.Logger
}

func CreatePlayerStorage(params PlayerStorageParams) (*PlayerStorage, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Directory == "" {
		return nil, &errors.MissingFieldError{MessageName: "PlayerStorageParams", FieldName: "Directory"}
	}
	if err := os.MkdirAll(params.Directory, 0o755); err != nil {
		return nil, err
	}

	return &PlayerStorage{
		dir: params.Directory,
		log: logger.With(zap.String("component", "PlayerStorage")),
	}, nil
}

func (s *PlayerStorage) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".player")
}

func (s *PlayerStorage) Exists(id uuid.UUID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Save replaces the save file for id with v. A crash mid-write leaves the
// previous file intact.
func (s *PlayerStorage) Save(id uuid.UUID, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	data := binary.LittleEndian.AppendUint32(make([]byte, 0, len(body)+4), saveMagic)
	data = append(data, body...)

	tmp, err := os.CreateTemp(s.dir, id.String()+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return err
	}

	s.log.Debug("Saved player", zap.Stringer("uuid", id), zap.Int("size", len(data)))
	return nil
}

// Load decodes the save file for id into v.
func (s *PlayerStorage) Load(id uuid.UUID, v any) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return &errors.Underflow{MessageName: "PlayerSave", MsgSize: len(data), MinimumSize: 4}
	}
	if magic := binary.LittleEndian.Uint32(data); magic != saveMagic {
		return &errors.InvalidHeaderVersion{ExpectedMagicNumber: saveMagic, ActualMagicNumber: magic}
	}
	if err := msgpack.Unmarshal(data[4:], v); err != nil {
		return fmt.Errorf("player save %s: %w", id, err)
	}
	return nil
}

func (s *PlayerStorage) Delete(id uuid.UUID) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
