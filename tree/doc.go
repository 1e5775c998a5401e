// SPDX-License-Identifier: MIT

// Package tree builds the rooted branching timeline the pruning engine walks.
//
// What
//
//   - New takes parallel parent/child node arrays; edge k is (rows[k], cols[k])
//     and its identity is k.
//   - Each node owns the ordered list of its child edges and refers to its
//     single parent edge by index.
//   - PostOrder lists children before parents; siblings follow input edge
//     order, so traversal is reproducible for a given input.
//
// Validation
//
//	Node indices must be in range, self-loops are rejected, exactly one node
//	may lack a parent edge and every other node must have exactly one.
//	Acyclicity is established by a parent-count + queue ordering starting at
//	the root; any node the ordering cannot reach lies on a cycle. All failures
//	wrap ErrInvalidTopology.
//
// Complexity
//
//   - New, PostOrder, PreOrder: O(N) time and memory.
//   - PathToRoot: O(depth).
package tree
