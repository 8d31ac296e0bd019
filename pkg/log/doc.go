/*
Package log provides structured logging for reactix using zerolog.

It wraps zerolog with a single global Logger, configurable level and JSON/console
output, and a handful of component-scoped child loggers (WithComponent,
WithEnclave, WithReactor, WithRunID) so that every log line carries enough context
to reconstruct which enclave, reactor, or run it came from without threading a
logger through every function signature.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	schedLog := log.WithComponent("scheduler").With().Str("run_id", runID).Logger()
	schedLog.Info().Str("tag", tag.String()).Msg("processing tag")

Fatal logs a message and calls os.Exit(1); it must only be used for startup
failures the process cannot recover from (e.g. a builder invariant violation),
never from within a running scheduler loop.
*/
package log
