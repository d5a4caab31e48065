// Package core wires the claimgate subsystems into one node: storage, state,
// ledgers, the kind registry, the campaign factory and engine, and the event
// fan-out the RPC layer streams from.
package core

import (
	"fmt"

	"claimgate/core/events"
	"claimgate/core/state"
	"claimgate/ledger"
	"claimgate/native/activity/prooflog"
	"claimgate/native/campaign"
	"claimgate/native/registry"
	"claimgate/storage"
)

// Node owns the engine composition for one daemon process.
type Node struct {
	db       storage.Database
	state    *state.Manager
	ledgers  campaign.Ledgers
	registry *registry.Registry
	engine   *campaign.Engine
	factory  *campaign.Factory
	buffer   *events.Buffer
	plog     *prooflog.Log
	treasury [20]byte
}

// Options configures node construction. Ledgers defaults to a fresh in-memory
// reference ledger when left unset; Emitters are fanned out alongside the
// node's own event buffer.
type Options struct {
	Treasury    [20]byte
	Ledgers     *campaign.Ledgers
	Emitters    []events.Emitter
	ProofLog    *prooflog.Log
	EventBuffer int
}

// NewNode composes a node over db. The caller keeps ownership of db and the
// proof log and closes them after the node stops.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	manager := state.NewManager(db)
	var ledgers campaign.Ledgers
	if opts.Ledgers != nil {
		ledgers = *opts.Ledgers
	} else {
		mem := ledger.NewMemory()
		ledgers = campaign.Ledgers{Tokens: mem, NFTs: mem, Spend: mem}
	}

	buffer := events.NewBuffer(opts.EventBuffer)
	emitter := make(events.MultiEmitter, 0, len(opts.Emitters)+1)
	emitter = append(emitter, buffer)
	emitter = append(emitter, opts.Emitters...)

	reg := registry.NewRegistry(manager)
	reg.SetEmitter(emitter)
	engine := campaign.NewEngine(manager)
	engine.SetEmitter(emitter)
	engine.SetProofLog(opts.ProofLog)
	factory := campaign.NewFactory(manager, reg, engine, ledgers, opts.Treasury)
	factory.SetEmitter(emitter)

	return &Node{
		db:       db,
		state:    manager,
		ledgers:  ledgers,
		registry: reg,
		engine:   engine,
		factory:  factory,
		buffer:   buffer,
		plog:     opts.ProofLog,
		treasury: opts.Treasury,
	}, nil
}

// Restore rehydrates every persisted campaign's live module instances. Call
// once at boot, after ledgers are seeded.
func (n *Node) Restore() (int, error) {
	return n.factory.Restore()
}

// Registry exposes the kind registry.
func (n *Node) Registry() *registry.Registry { return n.registry }

// Factory exposes the campaign factory.
func (n *Node) Factory() *campaign.Factory { return n.factory }

// Engine exposes the claim engine.
func (n *Node) Engine() *campaign.Engine { return n.engine }

// State exposes the shared state manager, for administrative role grants.
func (n *Node) State() *state.Manager { return n.state }

// Ledgers exposes the asset surfaces the node was composed with.
func (n *Node) Ledgers() campaign.Ledgers { return n.ledgers }

// Events exposes the buffered event stream the websocket endpoint serves.
func (n *Node) Events() *events.Buffer { return n.buffer }

// Treasury reports the platform fee treasury address.
func (n *Node) Treasury() [20]byte { return n.treasury }
