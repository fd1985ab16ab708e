// Package paper implements the import paper lifecycle: the ImportPaper entity,
// its state machine, its stored form and the Contract operations that move a
// paper from INVOICED to FINISHED or CANCELED.
//
// Lifecycle:
//
//	INVOICED --match--> MATCHED --confirm--> CONFIRMED --clear--> CLEARED
//	CONFIRMED --finish--> FINISHED
//	any state except FINISHED --cancel--> CANCELED
//
// Who may run each operation is decided by a Policy, keyed by action. The
// calling principal travels on the context (see WithCaller).
package paper
