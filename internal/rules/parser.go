// Package rules loads ananicy rule files from an ordered list of base
// directories, marks rules overridden by later same-named rules as shadowed,
// and answers filtered, sorted queries over the result.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ruleomatic/internal/types"
)

// Extension is the suffix of files the loader parses.
const Extension = ".rules"

// commentState is the state of the comment-to-rule association.
type commentState int

const (
	// stateCollecting appends comment lines to the pending block.
	stateCollecting commentState = iota
	// stateBlockConsumed means at least one rule used the pending block;
	// the next comment line starts a new block.
	stateBlockConsumed
)

// commentTracker associates a run of comment lines with every rule that
// follows it until a blank line or a new comment after a rule.
type commentTracker struct {
	state commentState
	lines []string
}

func (c *commentTracker) blank() {
	c.lines = c.lines[:0]
	c.state = stateCollecting
}

func (c *commentTracker) comment(line string) {
	if c.state == stateBlockConsumed {
		c.lines = c.lines[:0]
		c.state = stateCollecting
	}
	c.lines = append(c.lines, line)
}

func (c *commentTracker) ruleEmitted() {
	c.state = stateBlockConsumed
}

// current returns the pending block joined by newlines, or nil when empty.
func (c *commentTracker) current() *string {
	if len(c.lines) == 0 {
		return nil
	}
	joined := strings.Join(c.lines, "\n")
	return &joined
}

// LineError describes a rule line that could not be decoded.
type LineError struct {
	Line int // 1-based
	Text string
	Err  error
}

// Parse decodes the content of one rule file. Every line starting with '{'
// is decoded as a JSON rule; lines that fail to decode are returned in
// skipped and never abort the file. sourceFile is recorded on each rule.
func Parse(content, sourceFile string) (rules []types.EnrichedRule, skipped []LineError) {
	var comments commentTracker

	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			comments.blank()

		case strings.HasPrefix(trimmed, "#"):
			comments.comment(trimmed)

		case strings.HasPrefix(trimmed, "{"):
			data, err := decodeRule(trimmed)
			if err != nil {
				skipped = append(skipped, LineError{Line: i + 1, Text: trimmed, Err: err})
				continue
			}
			rules = append(rules, types.EnrichedRule{
				Data:           data,
				ContextComment: comments.current(),
				SourceFile:     sourceFile,
			})
			comments.ruleEmitted()
		}
	}

	return rules, skipped
}

type fieldDecoder func(r *types.Rule, raw json.RawMessage) error

func stringField(field func(*types.Rule) **string) fieldDecoder {
	return func(r *types.Rule, raw json.RawMessage) error {
		return json.Unmarshal(raw, field(r))
	}
}

// intField accepts only values that fit in 32 bits.
func intField(field func(*types.Rule) **int) fieldDecoder {
	return func(r *types.Rule, raw json.RawMessage) error {
		var v *int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if v != nil {
			n := int(*v)
			*field(r) = &n
		}
		return nil
	}
}

var ruleFields = map[string]fieldDecoder{
	"name":          stringField(func(r *types.Rule) **string { return &r.Name }),
	"type":          stringField(func(r *types.Rule) **string { return &r.Type }),
	"nice":          intField(func(r *types.Rule) **int { return &r.Nice }),
	"latency_nice":  intField(func(r *types.Rule) **int { return &r.LatencyNice }),
	"sched":         stringField(func(r *types.Rule) **string { return &r.Sched }),
	"rtprio":        intField(func(r *types.Rule) **int { return &r.RTPrio }),
	"ioclass":       stringField(func(r *types.Rule) **string { return &r.IOClass }),
	"oom_score_adj": intField(func(r *types.Rule) **int { return &r.OOMScoreAdj }),
	"cgroup":        stringField(func(r *types.Rule) **string { return &r.Cgroup }),
}

// decodeRule decodes one rule line. Field names match exactly and unknown
// fields are ignored. A repeated field or trailing data rejects the line.
func decodeRule(line string) (types.Rule, error) {
	var rule types.Rule
	dec := json.NewDecoder(strings.NewReader(line))

	if err := expectDelim(dec, '{'); err != nil {
		return types.Rule{}, err
	}
	seen := make(map[string]bool, len(ruleFields))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return types.Rule{}, err
		}
		key, _ := tok.(string)
		if seen[key] {
			return types.Rule{}, fmt.Errorf("duplicate field %q", key)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return types.Rule{}, err
		}
		decode, known := ruleFields[key]
		if !known {
			continue
		}
		if err := decode(&rule, raw); err != nil {
			return types.Rule{}, fmt.Errorf("field %q: %w", key, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return types.Rule{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.Rule{}, errors.New("unexpected data after rule")
	}
	return rule, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
