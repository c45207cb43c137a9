// Package report exports the rotation state in shareable formats.
//
// Writers implement the Writer interface, so the export command can
// target JSON for tool integration or Markdown for documentation with
// the same call, and compose both through MultiWriter.
package report
