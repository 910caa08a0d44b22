package dynamo

// Note: Generic AWS/smithy error categories and classifiers live under
// internal/awssdk/errors. The Store only adds the mapping from conditional
// conflicts onto eventstream.ErrVersionConflict.
//
// Project logging standard: emit logs as message + structured context
// (logging.Fields). Avoid printf-style formatting and prefer JSON-friendly
// key/value context so logs compose cleanly across call stacks.
