package main

import "github.com/nhzfoundation/nhzd/core/types"

// The canonical chain, ledger, and account-balance store are owned by a
// separate process component this module does not implement. These
// stand-ins let nhznode run standalone for development and testing of
// the data-plane alone; a real deployment wires node.Deps to the actual
// chain/ledger implementations.

type noopChainStore struct{}

func (noopChainStore) HasConfirmedTransaction(id uint64) bool { return false }

type noopLedger struct{}

func (noopLedger) ApplyUnconfirmed(tx *types.Transaction) error { return nil }
func (noopLedger) UndoUnconfirmed(tx *types.Transaction) error  { return nil }
func (noopLedger) Apply(tx *types.Transaction) error            { return nil }
func (noopLedger) Undo(tx *types.Transaction) error             { return nil }

type noopBalances struct{}

func (noopBalances) EffectiveBalance(accountID int64) int64 { return 0 }

type noopBlockSink struct{}

func (noopBlockSink) ProcessPeerBlock(data []byte) error { return nil }
