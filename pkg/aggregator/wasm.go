package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"

	pkgerrors "github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/update"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WASMAggregator runs a user-supplied aggregation strategy compiled to WASM.
// The module reads the update set as JSON on stdin and writes the aggregated
// weight structure as JSON on stdout.
type WASMAggregator struct {
	binary []byte
}

func NewWASM(path string) (*WASMAggregator, error) {
	binary, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(errors.New("failed to read wasm aggregator module"), err)
	}

	return &WASMAggregator{binary: binary}, nil
}

func (w *WASMAggregator) Aggregate(ctx context.Context, updates []update.ModelUpdate) (tensor.Weights, error) {
	if len(updates) < MinUpdates {
		return nil, pkgerrors.ErrInsufficientParticipants
	}

	input, err := json.Marshal(updates)
	if err != nil {
		return nil, err
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	var stdout bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithName("aggregator")

	if _, err := r.InstantiateWithConfig(ctx, w.binary, cfg); err != nil {
		return nil, errors.Join(errors.New("failed to run wasm aggregator"), err)
	}

	var out tensor.Weights
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, errors.Join(errors.New("invalid wasm aggregator output"), err)
	}

	return out, nil
}
