package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/invsync/inventory-sync-server/internal/catalog"
	"github.com/invsync/inventory-sync-server/internal/target"
)

// ErrNotFound is returned by Lookup when no catalog entry matches a SKU.
var ErrNotFound = errors.New("item not found")

// Updater applies one stock mutation against a target's remote platform.
// Implemented by remote.Client; tests substitute fakes.
type Updater interface {
	UpdateStock(ctx context.Context, remoteID string, quantity int) error
}

// Engine drives batches of items through resolution and update against a
// named target, folding per-item outcomes into a BatchResult.
//
// Only configuration errors (unknown target) and catalog fetch failures
// escape SyncBatch as call-level errors; everything that goes wrong with
// an individual item is reported in the result, so the caller always
// gets the complete picture.
type Engine struct {
	registry *target.Registry
	fetcher  *catalog.Fetcher
	updater  func(tgt *target.Credentials) Updater
}

// NewEngine wires the orchestrator. updater builds (or returns a shared)
// per-target update client.
func NewEngine(registry *target.Registry, fetcher *catalog.Fetcher, updater func(tgt *target.Credentials) Updater) *Engine {
	return &Engine{
		registry: registry,
		fetcher:  fetcher,
		updater:  updater,
	}
}

// SyncBatch synchronizes items against targetName in input order.
//
// The catalog is fetched once per batch (cache-first) and shared across
// all items. Items are independent: one failure never blocks the next.
// If ctx is cancelled mid-batch, remaining items are marked failed with
// detail "cancelled" and the partial result is still returned.
func (e *Engine) SyncBatch(ctx context.Context, targetName string, items []Item) (*BatchResult, error) {
	tgt, err := e.registry.Resolve(targetName)
	if err != nil {
		return nil, err
	}

	entries, err := e.fetcher.Fetch(ctx, tgt)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch: %w", err)
	}

	updater := e.updater(tgt)

	result := &BatchResult{}
	for _, item := range items {
		result.add(e.syncOne(ctx, tgt, entries, updater, item))
	}
	return result, nil
}

func (e *Engine) syncOne(ctx context.Context, tgt *target.Credentials, entries []catalog.Entry, updater Updater, item Item) Outcome {
	if ctx.Err() != nil {
		return Outcome{SKU: item.SKU, Detail: "cancelled"}
	}

	entry, ok := catalog.Resolve(entries, item.SKU)
	if !ok {
		log.Printf("Target %s: item not found for SKU %s", tgt.Name, item.SKU)
		return Outcome{SKU: item.SKU, Detail: "item not found"}
	}

	if err := updater.UpdateStock(ctx, entry.RemoteID, item.Quantity); err != nil {
		if ctx.Err() != nil {
			return Outcome{SKU: item.SKU, Detail: "cancelled"}
		}
		log.Printf("Target %s: stock update failed for SKU %s: %v", tgt.Name, item.SKU, err)
		return Outcome{SKU: item.SKU, Detail: err.Error()}
	}

	return Outcome{SKU: item.SKU, Succeeded: true}
}

// InvalidateCatalog drops the cached catalog for a target, forcing the
// next batch or lookup to refetch.
func (e *Engine) InvalidateCatalog(targetName string) error {
	if _, err := e.registry.Resolve(targetName); err != nil {
		return err
	}
	e.fetcher.Invalidate(targetName)
	return nil
}

// Lookup resolves a single SKU against the target's catalog without
// updating anything. Returns ErrNotFound when no entry matches.
func (e *Engine) Lookup(ctx context.Context, targetName, sku string) (catalog.Entry, error) {
	tgt, err := e.registry.Resolve(targetName)
	if err != nil {
		return catalog.Entry{}, err
	}

	entries, err := e.fetcher.Fetch(ctx, tgt)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("catalog fetch: %w", err)
	}

	entry, ok := catalog.Resolve(entries, sku)
	if !ok {
		return catalog.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, sku)
	}
	return entry, nil
}
