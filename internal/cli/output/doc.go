// Package output renders crudkv-cli results.
//
// Formats:
//
//   - table: aligned columns via text/tabwriter (default)
//   - json: indented JSON
//   - yaml: gopkg.in/yaml.v3
//
// Progress for long transfers and the gc spinner are drawn on stderr and
// only when stderr is a terminal.
package output
