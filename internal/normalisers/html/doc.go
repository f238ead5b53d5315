// Package html extracts the primary readable text from documentation pages.
//
// Extraction walks an ordered list of CSS selectors and stops at the first
// one whose first matching node still has visible text once navigation,
// footers, scripts, styles and sidebars are removed from it. Text nodes are
// trimmed and joined with newlines. The selector that matched is recorded on
// the resulting document.
package html
