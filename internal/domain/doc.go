// Package domain defines the core business types for the AdPilot insight pipeline.
//
// Types in this package are pure value objects with no behavior beyond derived
// metrics and validation. They are the shared language between the metrics
// store, the three pipeline engines, and the API layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Derived metrics (CTR, CPC, CVR, CPA, ROAS) are computed on read and
//     never stored redundantly
//   - Constants and enums belong here
package domain
