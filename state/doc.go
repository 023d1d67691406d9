// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the storage slots of the native contracts.
// It follows the flow as bellow:
//
//	         o
//	         |
//	[ revertable state ]
//	         |
//	  [ stacked map ] -> [ journal ] -> [ batch ] -> [ kv store ]
//	         |
//	   [ lru cache ]
//	         |
//	   [ kv store ]
//
// A call takes a checkpoint before it runs and reverts to it on error, so a failed call
// leaves no trace. Commit flushes the journal of all successful calls.
package state
