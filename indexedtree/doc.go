package indexedtree

/*

# Indexed Merkle tree

An indexed Merkle tree has a fixed number of leaf slots, 2^height. The leaves
that have been inserted form a singly linked list sorted by value:

	slot:   0          1           2           3
	leaf:  (0, 2, 10) (20, 0, 0)  (10, 1, 20) (0, 0, 0)
	        sentinel   maximum                 unused

Each leaf is (value, nextIndex, nextValue). Slot 0 is the sentinel, slots
are handed out in insertion order and never reused, and the leaf whose
nextIndex is 0 holds the current maximum.

## Non-membership

The chain is what makes absence provable. To show that v is not in the tree
it is enough to prove the inclusion of the low leaf of v, the inserted leaf
with the largest value not exceeding v, and to show

	low.value < v && (low.nextIndex == 0 || v < low.nextValue)

## Insertion and recomputation

Insert only edits the leaf table: it writes the new leaf into the next free
slot and rewrites the successor pointer of the low leaf. That second write can
land anywhere in the table, so an insert dirties two leaf paths. Digests are
refreshed separately, by one of

- RecomputeAffected(newSlot, lowSlot): the two paths of one insert, hashing
  shared ancestors once. O(height).
- Commit(): every path dirtied since the last refresh, merged per level.
- RecomputeAll(): the whole table. O(capacity).

Root and the proof methods refuse to answer while any leaf is dirty.

## Duplicates

By default inserting a value that is already present fails with
merkle.ErrDuplicateValue, which keeps the chain strictly increasing. The
sentinel's value is 0, so 0 can never be inserted in that mode. WithDuplicates
allows repeats: the new leaf is spliced after the last leaf holding an equal
value.

*/
