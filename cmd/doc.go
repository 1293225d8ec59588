// Package cmd implements the calassist command line interface.
//
// The CLI is a thin dispatcher over the unified calendar contract: a global
// --backend flag selects the Google or Outlook adapter, and the subcommands
// (auth, list, create, update, delete, search) map one-to-one onto the
// Assistant operations. All real behavior lives in the internal packages.
package cmd
