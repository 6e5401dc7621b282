// Package subscription issues chunked subscribe requests and remembers what
// was sent so a new connection can replay it.
//
// Each token group is split into messages of at most wire.MaxTokensPerMessage
// tokens, and every message gets its own correlation id. Every send attempt
// is written to the Record whether or not the write succeeded: the record
// holds what the session intends to be subscribed to, and Resubscribe replays
// it verbatim on the next connection without consulting the token source.
package subscription
