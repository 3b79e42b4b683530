package transcribe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// NoteEvent is one detected note. All fields are plain serializable values;
// coercion from boxed numerics happens once, in UnmarshalJSON, so nothing
// downstream ever needs a sanitization pass.
type NoteEvent struct {
	Pitch      int     `json:"pitch"`      // MIDI semitone number
	Onset      float64 `json:"onset"`      // seconds
	Offset     float64 `json:"offset"`     // seconds
	Confidence float64 `json:"confidence"` // 0-1
}

// UnmarshalJSON accepts each field as a plain number or a stringified
// number. Model backends hand back boxed numeric scalars that serialize
// either way depending on version.
func (n *NoteEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pitch      json.Number `json:"pitch"`
		Onset      json.Number `json:"onset"`
		Offset     json.Number `json:"offset"`
		Confidence json.Number `json:"confidence"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		// retry with string-valued fields
		var rawStr struct {
			Pitch      string `json:"pitch"`
			Onset      string `json:"onset"`
			Offset     string `json:"offset"`
			Confidence string `json:"confidence"`
		}
		if err2 := json.Unmarshal(data, &rawStr); err2 != nil {
			return err
		}
		raw.Pitch = json.Number(rawStr.Pitch)
		raw.Onset = json.Number(rawStr.Onset)
		raw.Offset = json.Number(rawStr.Offset)
		raw.Confidence = json.Number(rawStr.Confidence)
	}

	pitch, err := raw.Pitch.Float64()
	if err != nil {
		return fmt.Errorf("note pitch %q is not numeric: %w", raw.Pitch, err)
	}
	onset, err := raw.Onset.Float64()
	if err != nil {
		return fmt.Errorf("note onset %q is not numeric: %w", raw.Onset, err)
	}
	offset, err := raw.Offset.Float64()
	if err != nil {
		return fmt.Errorf("note offset %q is not numeric: %w", raw.Offset, err)
	}
	confidence := 0.0
	if raw.Confidence != "" {
		confidence, err = raw.Confidence.Float64()
		if err != nil {
			return fmt.Errorf("note confidence %q is not numeric: %w", raw.Confidence, err)
		}
	}

	n.Pitch = int(pitch)
	n.Onset = onset
	n.Offset = offset
	n.Confidence = confidence
	return nil
}

// SortNotes orders events temporally by onset. Equal onsets keep pitch
// order for determinism; duplicates are allowed.
func SortNotes(notes []NoteEvent) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Onset != notes[j].Onset {
			return notes[i].Onset < notes[j].Onset
		}
		return notes[i].Pitch < notes[j].Pitch
	})
}

// EncodeNotes serializes a note-event sequence to the JSON interchange form
func EncodeNotes(notes []NoteEvent) ([]byte, error) {
	return json.MarshalIndent(notes, "", "  ")
}

// DecodeNotes parses the JSON interchange form, coercing boxed numerics,
// and returns the events in temporal order.
func DecodeNotes(data []byte) ([]NoteEvent, error) {
	var notes []NoteEvent
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse note events: %w", err)
	}
	SortNotes(notes)
	return notes, nil
}

// NotesFromMIDI derives a note-event sequence from MIDI bytes by pairing
// note-on and note-off messages across all tracks. Used when a persist-style
// backend produced a MIDI file but no note-event sidecar, and to verify that
// MIDI and note artifacts describe the same content.
func NotesFromMIDI(data []byte) (notes []NoteEvent, err error) {
	// smf can panic on truncated files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse midi: %v", r)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse midi: %w", err)
	}

	type openNote struct {
		onset      float64
		confidence float64
	}

	for _, track := range s.Tracks {
		var absTicks int64
		open := make(map[uint8]openNote)
		for _, evt := range track {
			absTicks += int64(evt.Delta)
			absTime := float64(s.TimeAt(absTicks)) / 1e6 // microseconds to seconds

			var ch, key, vel uint8
			switch {
			case evt.Message.GetNoteStart(&ch, &key, &vel):
				open[key] = openNote{onset: absTime, confidence: float64(vel) / 127.0}
			case evt.Message.GetNoteEnd(&ch, &key):
				if on, ok := open[key]; ok {
					notes = append(notes, NoteEvent{
						Pitch:      int(key),
						Onset:      on.onset,
						Offset:     absTime,
						Confidence: on.confidence,
					})
					delete(open, key)
				}
			}
		}
	}

	SortNotes(notes)
	return notes, nil
}
