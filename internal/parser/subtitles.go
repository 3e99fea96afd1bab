package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pable/go-subchurn/internal/model"
)

// ParseSubtitles reads a transcript file. Files ending in .srt (optionally
// compressed) are parsed as SRT; everything else as subtitle JSON.
func ParseSubtitles(path string) (*model.SubtitleDoc, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if baseExt(path) == ".srt" {
		entries, err := ParseSRT(r)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		return &model.SubtitleDoc{VideoID: strings.TrimSuffix(name, filepath.Ext(name)), Entries: entries}, nil
	}
	return DecodeSubtitles(r)
}

type rawEntry struct {
	Text     flexString `json:"text"`
	Start    flexNum    `json:"start"`
	Duration flexNum    `json:"duration"`
}

type rawDoc struct {
	VideoID  flexString `json:"video_id"`
	Subtitle []rawEntry `json:"subtitles"`
}

// DecodeSubtitles decodes {"video_id", "subtitles": [{text, start, duration}]}.
// Missing or mistyped fields become empty strings and zeros.
func DecodeSubtitles(r io.Reader) (*model.SubtitleDoc, error) {
	var raw rawDoc
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode subtitles: %w", err)
	}
	doc := &model.SubtitleDoc{VideoID: string(raw.VideoID), Entries: make([]model.SubtitleEntry, 0, len(raw.Subtitle))}
	for _, e := range raw.Subtitle {
		doc.Entries = append(doc.Entries, model.SubtitleEntry{
			Text:     string(e.Text),
			Start:    float64(e.Start),
			Duration: float64(e.Duration),
		})
	}
	return doc, nil
}

// ParseSRT parses SubRip text. Multi-line cues are joined with a space.
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
func ParseSRT(r io.Reader) ([]model.SubtitleEntry, error) {
	var (
		entries    []model.SubtitleEntry
		start, end float64
		text       []string
		inCue      bool
	)
	flush := func() {
		if inCue && len(text) > 0 {
			entries = append(entries, model.SubtitleEntry{
				Text:     strings.Join(text, " "),
				Start:    start,
				Duration: max(end-start, 0),
			})
		}
		text = nil
		inCue = false
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			parts := strings.SplitN(line, "-->", 2)
			s, err := parseSRTTime(parts[0])
			if err != nil {
				return nil, fmt.Errorf("srt line %d: %w", lineNo, err)
			}
			e, err := parseSRTTime(parts[1])
			if err != nil {
				return nil, fmt.Errorf("srt line %d: %w", lineNo, err)
			}
			start, end, inCue = s, e, true
		case !inCue && isDigitOnly(line):
			// sequence number
		case inCue:
			text = append(text, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	flush()
	return entries, nil
}

// parseSRTTime parses HH:MM:SS,mmm (a '.' separator is also accepted).
// Position settings after the timestamp are ignored.
func parseSRTTime(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty timestamp")
	}
	ts := strings.Replace(fields[0], ",", ".", 1)
	hms := strings.Split(ts, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("bad timestamp %q", fields[0])
	}
	h, err := strconv.Atoi(hms[0])
	if err != nil {
		return 0, fmt.Errorf("bad hours in %q", fields[0])
	}
	m, err := strconv.Atoi(hms[1])
	if err != nil {
		return 0, fmt.Errorf("bad minutes in %q", fields[0])
	}
	sec, err := strconv.ParseFloat(hms[2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad seconds in %q", fields[0])
	}
	return float64(h*3600+m*60) + sec, nil
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
