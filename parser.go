package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is one element of the parsed ReAct output stream: either a run of
// plain text or a fully-parsed Action. Exactly one of the fields is set.
type Segment struct {
	Text   string
	Action *Action
}

// parserState names the top-level state of the ActionParser state machine.
type parserState int

const (
	// statePlain scans free text, watching for fences, standalone JSON
	// objects and the action:/thought: keyword prefixes.
	statePlain parserState = iota

	// stateFence buffers everything until the closing ``` fence.
	stateFence

	// stateJSON buffers a standalone {...} object, brace-depth aware.
	stateJSON
)

// ActionParser is an online parser for the free-text ReAct protocol.
//
// It consumes model output fragment by fragment with no boundary guarantees:
// a fragment may split a keyword, a fence or a JSON token anywhere. Feed
// returns the segments that became unambiguous with this fragment; Flush
// drains whatever is still buffered once the stream ends.
//
// Classification rules:
//
//   - Backtick-fenced blocks are buffered to the closing fence. If the body
//     parses as a JSON object or array it is converted to Actions, otherwise
//     the body (fences stripped) is re-emitted as text.
//   - A standalone { outside a fence starts a brace-balanced JSON buffer,
//     parsed the same way once balanced.
//   - The case-insensitive prefixes "action:" and "thought:" are swallowed
//     when they start at a line start or after whitespace; partial matches
//     that fail are flushed verbatim.
//   - Everything else is emitted immediately. Backticks are never emitted
//     as literal text.
//
// The parser never fails: malformed JSON degrades to plain text.
type ActionParser struct {
	state parserState

	// text accumulates plain characters until the next structured segment
	// or the end of the current Feed call.
	text strings.Builder

	// tickRun counts consecutive backticks (0..2 pending, 3 toggles fence).
	tickRun int

	// fenceBody is the fenced content, closing-fence backticks excluded.
	fenceBody strings.Builder

	// jsonBuf and jsonDepth track a standalone JSON object.
	jsonBuf   strings.Builder
	jsonDepth int

	// kwTarget is "action:" or "thought:" while a prefix match is in
	// flight; kwBuf holds the original-cased characters consumed so far.
	kwTarget string
	kwBuf    strings.Builder

	// lastChar is the previously consumed character, used for the
	// word-boundary check on keyword starts. Zero means stream start.
	lastChar byte

	segs []Segment
}

// NewActionParser returns a parser ready to consume the first fragment.
func NewActionParser() *ActionParser {
	return &ActionParser{}
}

// Feed consumes one fragment and returns the segments completed by it.
// The returned slice is only valid until the next call.
func (p *ActionParser) Feed(fragment string) []Segment {
	p.segs = p.segs[:0]
	for i := 0; i < len(fragment); i++ {
		p.consume(fragment[i])
	}
	p.cutText()
	return p.segs
}

// Flush ends the stream and drains any buffered state: a pending keyword
// partial is emitted verbatim, an unterminated fence is emitted as text,
// and an unterminated JSON buffer goes through action extraction.
func (p *ActionParser) Flush() []Segment {
	p.segs = p.segs[:0]
	p.flushKeyword()
	switch p.state {
	case stateFence:
		p.emitText(p.fenceBody.String())
		p.fenceBody.Reset()
	case stateJSON:
		p.emit(parseActionCandidate(p.jsonBuf.String()))
		p.jsonBuf.Reset()
	}
	p.state = statePlain
	p.tickRun = 0
	p.cutText()
	return p.segs
}

func (p *ActionParser) consume(c byte) {
	switch p.state {
	case stateFence:
		p.consumeFence(c)
	case stateJSON:
		p.consumeJSON(c)
	default:
		p.consumePlain(c)
	}
}

func (p *ActionParser) consumePlain(c byte) {
	if c == '`' {
		p.flushKeyword()
		p.tickRun++
		if p.tickRun == 3 {
			p.tickRun = 0
			p.state = stateFence
			p.fenceBody.Reset()
		}
		p.lastChar = c
		return
	}
	// Stray backticks that did not form a fence are swallowed, never
	// re-emitted as literal text.
	p.tickRun = 0

	if p.consumeKeyword(c) {
		return
	}

	if c == '{' {
		p.state = stateJSON
		p.jsonBuf.Reset()
		p.jsonBuf.WriteByte(c)
		p.jsonDepth = 1
		p.lastChar = c
		return
	}

	p.text.WriteByte(c)
	p.lastChar = c
}

func (p *ActionParser) consumeFence(c byte) {
	if c == '`' {
		p.tickRun++
		if p.tickRun == 3 {
			p.tickRun = 0
			p.state = statePlain
			p.closeFence()
		}
		return
	}
	// Backticks that did not complete the closing fence are fence content.
	for i := 0; i < p.tickRun; i++ {
		p.fenceBody.WriteByte('`')
	}
	p.tickRun = 0
	p.fenceBody.WriteByte(c)
	p.lastChar = c
}

func (p *ActionParser) consumeJSON(c byte) {
	p.jsonBuf.WriteByte(c)
	p.lastChar = c
	switch c {
	case '{':
		p.jsonDepth++
	case '}':
		p.jsonDepth--
		if p.jsonDepth == 0 {
			p.state = statePlain
			p.emit(parseActionCandidate(p.jsonBuf.String()))
			p.jsonBuf.Reset()
		}
	}
}

// consumeKeyword advances the action:/thought: prefix match. It returns true
// when c was absorbed into a (possibly still partial) keyword match.
func (p *ActionParser) consumeKeyword(c byte) bool {
	lc := lowerByte(c)

	if p.kwTarget == "" {
		if !p.atWordBoundary() {
			return false
		}
		switch lc {
		case 'a':
			p.kwTarget = "action:"
		case 't':
			p.kwTarget = "thought:"
		default:
			return false
		}
		p.kwBuf.WriteByte(c)
		p.lastChar = c
		return true
	}

	idx := p.kwBuf.Len()
	if lc == p.kwTarget[idx] {
		p.kwBuf.WriteByte(c)
		p.lastChar = c
		if p.kwBuf.Len() == len(p.kwTarget) {
			// Full match: the prefix is swallowed, not re-emitted.
			p.kwTarget = ""
			p.kwBuf.Reset()
		}
		return true
	}

	// Mismatch: the partial was ordinary text after all.
	p.flushKeyword()
	return false
}

// atWordBoundary reports whether a keyword may start at the current
// position: stream start, line start, or after whitespace.
func (p *ActionParser) atWordBoundary() bool {
	switch p.lastChar {
	case 0, '\n', '\r', '\t', ' ':
		return true
	}
	return false
}

func (p *ActionParser) flushKeyword() {
	if p.kwBuf.Len() > 0 {
		p.text.WriteString(p.kwBuf.String())
	}
	p.kwTarget = ""
	p.kwBuf.Reset()
}

// closeFence classifies the completed fenced block.
func (p *ActionParser) closeFence() {
	body := p.fenceBody.String()
	p.fenceBody.Reset()

	candidate := strings.TrimSpace(body)
	// Drop a leading language tag such as "json\n".
	if nl := strings.IndexByte(candidate, '\n'); nl > 0 && isAlphaOnly(candidate[:nl]) {
		candidate = strings.TrimSpace(candidate[nl+1:])
	}

	if candidate == "" || (candidate[0] != '{' && candidate[0] != '[') {
		p.emitText(body)
		return
	}

	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		p.emitText(body)
		return
	}

	switch v := decoded.(type) {
	case []any:
		for _, elem := range v {
			p.emit(extractAction(elem))
		}
	default:
		p.emit(extractAction(decoded))
	}
}

func (p *ActionParser) emit(seg Segment) {
	if seg.Action == nil && seg.Text == "" {
		return
	}
	if seg.Action != nil {
		p.cutText()
	} else {
		p.text.WriteString(seg.Text)
		return
	}
	p.segs = append(p.segs, seg)
}

func (p *ActionParser) emitText(s string) {
	p.text.WriteString(s)
}

// cutText flushes accumulated plain text as a single Segment.
func (p *ActionParser) cutText() {
	if p.text.Len() == 0 {
		return
	}
	p.segs = append(p.segs, Segment{Text: p.text.String()})
	p.text.Reset()
}

// parseActionCandidate classifies a raw string that may hold a JSON action.
// Parse failures are not errors: the candidate degrades to plain text.
func parseActionCandidate(raw string) Segment {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Segment{Text: raw}
	}
	return extractAction(decoded)
}

// extractAction applies the action-extraction rule to a decoded JSON value:
// keys are inspected case-insensitively, any key containing "input" supplies
// the action input, any other key supplies the action name. Both must be
// present to form an Action; otherwise the value is re-serialized as text.
func extractAction(decoded any) Segment {
	// Some providers wrap the action object in a singleton list.
	if list, ok := decoded.([]any); ok && len(list) == 1 {
		decoded = list[0]
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return reserialize(decoded)
	}

	var (
		name      string
		input     any
		haveName  bool
		haveInput bool
	)
	for key, value := range obj {
		if strings.Contains(strings.ToLower(key), "input") {
			input = value
			haveInput = true
		} else {
			name = stringify(value)
			haveName = true
		}
	}

	if haveName && haveInput {
		return Segment{Action: &Action{Name: name, Input: normalizeInput(input)}}
	}
	return reserialize(obj)
}

// normalizeInput keeps string and object inputs as-is and stringifies
// anything else, so Action.Input is always string or map[string]any.
func normalizeInput(input any) any {
	switch input.(type) {
	case string, map[string]any:
		return input
	default:
		return stringify(input)
	}
}

func reserialize(v any) Segment {
	b, err := json.Marshal(v)
	if err != nil {
		return Segment{Text: fmt.Sprintf("%v", v)}
	}
	return Segment{Text: string(b)}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isAlphaOnly(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// ParseStream drives a model chunk stream through an ActionParser, yielding
// segments lazily. Usage metadata attached to any chunk is captured into acc
// as a side effect, independent of the segment stream.
//
// The returned channel is unbuffered: consumption is pull-based and the
// goroutine exits when the input channel closes and buffered state drains.
func ParseStream(chunks <-chan Chunk, acc *UsageAccumulator) <-chan Segment {
	out := make(chan Segment)
	go func() {
		defer close(out)
		p := NewActionParser()
		for chunk := range chunks {
			if chunk.Usage != nil && acc != nil {
				acc.Add(chunk.Usage)
			}
			for _, seg := range p.Feed(chunk.Delta) {
				out <- seg
			}
		}
		for _, seg := range p.Flush() {
			out <- seg
		}
	}()
	return out
}
