// Package builderr defines BuilderError, the single error type returned by
// every precondition check in pkg/builder. It carries a Kind so callers can
// branch on the failure mode with errors.As instead of parsing messages.
package builderr
