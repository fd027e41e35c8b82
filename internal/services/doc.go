// Package services holds cross-cutting helpers for external-facing clients:
// the sentinel error taxonomy phases use to classify failures, and context
// annotations (item, phase, worker, correlation id) that logging derives
// structured fields from.
package services
