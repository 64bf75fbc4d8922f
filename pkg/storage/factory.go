package storage

import (
	"fmt"
	"io"

	"github.com/absmach/colearn/agent"
	badgerstore "github.com/absmach/colearn/pkg/storage/badger"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

type Config struct {
	Type string `env:"COORDINATOR_STORAGE_TYPE" envDefault:"memory"`

	BadgerPath string `env:"COORDINATOR_BADGER_PATH" envDefault:"./data/badger"`
}

// Repositories bundles one storage per entity kind.
type Repositories struct {
	Agents     Storage
	Rounds     Storage
	Updates    Storage
	Results    Storage
	Detections Storage

	closer io.Closer
}

func (r *Repositories) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}

// NewRepositories builds the storage set selected by cfg.Type.
func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "", "memory":
		return &Repositories{
			Agents:     NewInMemoryStorage(),
			Rounds:     NewInMemoryStorage(),
			Updates:    NewInMemoryStorage(),
			Results:    NewInMemoryStorage(),
			Detections: NewInMemoryStorage(),
		}, nil
	case "badger":
		db, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger storage: %w", err)
		}

		return &Repositories{
			Agents:     badgerstore.NewStorage(db, "agents", badgerstore.Decoder[agent.Agent]()),
			Rounds:     badgerstore.NewStorage(db, "rounds", badgerstore.Decoder[round.LearningRound]()),
			Updates:    badgerstore.NewStorage(db, "updates", badgerstore.Decoder[update.ModelUpdate]()),
			Results:    badgerstore.NewStorage(db, "results", badgerstore.Decoder[round.AggregationResult]()),
			Detections: badgerstore.NewStorage(db, "detections", badgerstore.Decoder[round.DetectionResult]()),
			closer:     db,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
