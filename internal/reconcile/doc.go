// Package reconcile merges metadata across a duplicate cluster into the
// canonical record.
//
// The merge rule is a total, explicit ordering over cluster members (the same
// order canonical election uses) with first-present-value-wins per field,
// which keeps merge results independent of scan order and testable in
// isolation. Demotion of stale canonicals is driven by the scan orchestrator;
// this package only decides field values.
package reconcile
