// Package engine commits a selected proxy record as the current egress
// point. Applying a record resolves the externally visible address,
// mutates egress configuration through pluggable configurators, appends
// to the rotation history, and persists the new state.
package engine
