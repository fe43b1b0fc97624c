package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

// Adapter publishes one post to one destination network using an already
// decrypted connection.
type Adapter interface {
	Platform() platform.ID
	Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error)
}

type Adapters map[platform.ID]Adapter

func NewAdapters(list ...Adapter) Adapters {
	adapters := make(Adapters, len(list))
	for _, a := range list {
		adapters[a.Platform()] = a
	}
	return adapters
}

func (a Adapters) For(id platform.ID) (Adapter, error) {
	adapter, ok := a[id]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q", id)
	}
	return adapter, nil
}
