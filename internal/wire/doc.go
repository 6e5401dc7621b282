// Package wire defines the JSON messages exchanged with the streaming feed.
//
// Only the subscribe request is produced. Payload frames sent by the feed are
// binary and are not decoded here.
package wire
