// Headless universe client: connects to a server, enters the universe and
// runs the update loop until interrupted or disconnected.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/assets"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/storage"
	"github.com/sessamekesh/universe-client/pkg/transport"
	"github.com/sessamekesh/universe-client/pkg/universe"
	"go.uber.org/zap"
)

func main() {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("APP_ENV") != "production" {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	//
	// Flags
	serverUrl := flag.String("url", "ws://localhost:21025/universe", "WebSocket URL of the universe server")
	envFile := flag.String("env", ".env", "Optional file of UNIVERSE_* settings")
	assetFiles := flag.String("assets", "", "Comma separated asset files hashed into the assets digest")
	storageDir := flag.String("storage", "player", "Directory for player save files")
	playerId := flag.String("uuid", "", "Player UUID; a new player is created when empty")
	name := flag.String("name", "Wanderer", "Player name for new players")
	species := flag.String("species", "human", "Player species for new players")
	mode := flag.String("mode", "casual", "Player mode for new players (casual, survival, hardcore)")
	account := flag.String("account", "", "Server account name")
	tickRate := flag.Duration("tick", time.Second/60, "Simulation step")
	flag.Parse()

	config, err := assets.LoadConfig(*envFile)
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return
	}

	var files []string
	if *assetFiles != "" {
		files = strings.Split(*assetFiles, ",")
	}
	root, err := assets.CreateRoot(assets.RootParams{
		Config:     config,
		AssetFiles: files,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to hash asset files", zap.Error(err))
		return
	}

	store, err := storage.CreatePlayerStorage(storage.PlayerStorageParams{
		Directory: *storageDir,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to open player storage", zap.Error(err))
		return
	}

	master, stats, err := loadPlayer(store, *playerId, *name, *species, *mode, logger)
	if err != nil {
		logger.Error("Failed to load player", zap.Error(err))
		return
	}

	client := universe.CreateUniverseClient(root, master, universe.UniverseClientParams{
		Account:    *account,
		Password:   os.Getenv("UNIVERSE_PASSWORD"),
		Storage:    store,
		Statistics: stats,
		Logger:     logger,
	})

	shutdownCtx, shutdownRelease := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer shutdownRelease()

	//
	// Connect
	socket, err := transport.DialWebsocket(shutdownCtx, transport.WebsocketSocketParams{
		Url:              *serverUrl,
		HandshakeTimeout: config.HandshakeTimeout,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("Failed to reach server", zap.String("url", *serverUrl), zap.Error(err))
		return
	}
	if err := client.Connect(shutdownCtx, socket); err != nil {
		logger.Error("Could not join server", zap.Error(err))
		return
	}

	//
	// Update loop
	ticker := time.NewTicker(*tickRate)
	defer ticker.Stop()
	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	last := time.Now()
	for client.IsConnected() {
		select {
		case <-shutdownCtx.Done():
			logger.Info("Shutting down, leaving the server")
			client.Disconnect(context.Background())
		case now := <-ticker.C:
			client.Update(now.Sub(last))
			last = now
			for _, msg := range client.PullChatMessages() {
				logger.Info("Chat", zap.String("from", msg.FromNick), zap.String("text", msg.Text))
			}
		case <-statsTicker.C:
			if s, ok := client.ConnectionStats(); ok {
				logger.Info("Traffic",
					zap.Float64("bytesPerSecondIn", s.BytesPerSecondIn),
					zap.Float64("bytesPerSecondOut", s.BytesPerSecondOut),
					zap.Stringer("largestIn", s.LargestIn.Type),
					zap.Int("largestInSize", s.LargestIn.Size))
			}
		}
	}

	logger.Info("Disconnected", zap.String("reason", client.DisconnectReason()))
}

func loadPlayer(store *storage.PlayerStorage, id, name, species, mode string, logger *zap.Logger) (*player.Master, universe.Statistics, error) {
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, universe.Statistics{}, err
		}
		if store.Exists(parsed) {
			rec, err := universe.LoadSave(store, parsed)
			if err != nil {
				return nil, universe.Statistics{}, err
			}
			master, err := player.LoadMaster(rec.Player, logger)
			return master, rec.Statistics, err
		}
	}

	parsedMode, err := player.ParseMode(mode)
	if err != nil {
		return nil, universe.Statistics{}, fmt.Errorf("invalid -mode: %w", err)
	}
	identity := player.Identity{Uuid: uuid.New(), Name: name, Species: species, Mode: parsedMode}
	if id != "" {
		identity.Uuid = uuid.MustParse(id)
	}
	logger.Info("Created new player", zap.Stringer("uuid", identity.Uuid), zap.String("name", name))
	return player.CreateMaster(player.MasterParams{Identity: identity, Logger: logger}), universe.Statistics{}, nil
}
