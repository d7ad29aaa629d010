//nolint:revive // types is a common Go package naming convention
package types

// Version is the project version reported by the CLI.
const Version = "0.3.0"

// ReportVersion is the schema version of published metric reports.
// It moves in lockstep with Version.
const ReportVersion = Version
