// Package assets owns the client's configuration and the digest of the
// asset files it was started with.
package assets

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

const DigestSize = 32

type RootParams struct {
	Config Config

	// Files hashed into the assets digest sent during the handshake. Order
	// does not matter.
	AssetFiles []string

	Logger *zap.Logger
}

// Root is shared by every system that reads configuration. Generation
// increases whenever Reload swaps the contents, so callers can detect that
// anything derived from the old root is stale.
type Root struct {
	log *zap.Logger

	mut_root   sync.RWMutex
	config     Config
	assetFiles []string
	digest     []byte
	generation uint64
}

func CreateRoot(params RootParams) (*Root, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	digest, err := DigestFiles(params.AssetFiles...)
	if err != nil {
		return nil, err
	}

	return &Root{
		log:        logger.With(zap.String("component", "AssetsRoot")),
		config:     params.Config,
		assetFiles: append([]string(nil), params.AssetFiles...),
		digest:     digest,
		generation: 1,
	}, nil
}

func (r *Root) Config() Config {
	r.mut_root.RLock()
	defer r.mut_root.RUnlock()
	return r.config
}

func (r *Root) Digest() []byte {
	r.mut_root.RLock()
	defer r.mut_root.RUnlock()
	return append([]byte(nil), r.digest...)
}

func (r *Root) Generation() uint64 {
	r.mut_root.RLock()
	defer r.mut_root.RUnlock()
	return r.generation
}

// Reload installs config and rehashes the asset files. On error the root is
// left untouched.
func (r *Root) Reload(config Config) error {
	r.mut_root.RLock()
	files := r.assetFiles
	r.mut_root.RUnlock()

	digest, err := DigestFiles(files...)
	if err != nil {
		r.log.Error("Failed to rehash assets on reload", zap.Error(err))
		return err
	}

	r.mut_root.Lock()
	defer r.mut_root.Unlock()
	r.config = config
	r.digest = digest
	r.generation++
	r.log.Info("Reloaded assets", zap.Uint64("generation", r.generation))
	return nil
}

// DigestFiles hashes the named files into a single blake3 digest. Each file
// contributes its base name and contents, in sorted name order.
func DigestFiles(files ...string) ([]byte, error) {
	sorted := append([]string(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	h := blake3.New(DigestSize, nil)
	for _, name := range sorted {
		if err := hashFile(h, name); err != nil {
			return nil, err
		}
	}
	return h.Sum(nil), nil
}

func hashFile(w io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.WriteString(w, filepath.Base(name)); err != nil {
		return err
	}
	w.Write([]byte{0})
	_, err = io.Copy(w, f)
	return err
}
