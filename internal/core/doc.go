// Package core cleans contact CSV files.
//
// It has no HTTP or database dependencies of its own beyond the store
// interface, so the web server, the CLI and tests all drive the same code.
//
// # Pipeline
//
// A [Pipeline] turns raw text into cleaned rows in four steps:
//
//  1. [Tokenize] splits text into rows, honouring quoted fields that span lines
//  2. The header is cleaned and compared, case-insensitively, to the expected
//     columns; any mismatch stops the run with a [*StructureError]
//  3. Each data row is cleaned by [CleanRow] and checked by a [RowValidator]:
//     wrong field count, bad email or damaged quoting drops the row, a bad
//     phone number only blanks the phone field
//  4. [Serialize] writes the kept rows back out as CSV
//
// Large inputs are validated in parallel chunks; output order always matches
// input order.
//
// # Email Normalization
//
// Email suffixes are lowercased and common typos are fixed (".con" becomes
// ".com") unless the suffix is already on the allow-list. [EmailRules] can be
// extended from the presets file.
//
// # Service
//
// [Service.Clean] wraps the pipeline with input decoding ([ReadInput]), a
// concurrency limit ([JobLimiter]), a per-job timeout and run history. Old
// runs are pruned by [Service.StartRetentionScheduler].
//
// # Error Handling
//
// [MapError] turns errors into messages for people, each with a code:
//
//   - HDR001-HDR004: header problems ([StructureError] kinds)
//   - FILE001, FILE004: file size and missing file
//   - REQ001-REQ002: invalid request, unknown preset
//   - JOB001-JOB003: busy, cancelled, timed out
//   - RUN001, DB004-DB006: run history
package core
