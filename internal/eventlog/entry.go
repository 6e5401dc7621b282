package eventlog

import (
	"encoding/json"
	"time"
)

// TimeLayout is the record timestamp format (local time, millisecond precision).
const TimeLayout = "2006-01-02 15:04:05.000"

// Entry is a single event log entry.
type Entry struct {
	Source  string
	Message string
	Time    time.Time
}

// record is the on-disk shape of an Entry.
type record struct {
	Source  string `json:"Source"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// MarshalJSON encodes the entry as a self-describing record.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		Source:  e.Source,
		Message: e.Message,
		Time:    e.Time.Local().Format(TimeLayout),
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	t, err := time.ParseInLocation(TimeLayout, r.Time, time.Local)
	if err != nil {
		return err
	}
	*e = Entry{Source: r.Source, Message: r.Message, Time: t}
	return nil
}

// Line returns the record followed by a newline.
func (e Entry) Line() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
