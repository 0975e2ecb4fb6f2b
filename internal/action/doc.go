// Package action is the host-local boundary for the physical trigger action.
//
// The coordinator never sees any of this. A host performs exactly one
// configured action (click or scroll sequence) at the last captured screen
// point per trigger. Input synthesis itself sits behind Driver.
package action
