package wire

import (
	"bufio"
	"bytes"
	"testing"
	"testing/iotest"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := &Frame{ID: 7, Method: "Page.navigate", SessionID: "sess-1", Params: []byte(`{"url":"about:blank"}`)}

	b, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if b[len(b)-1] != Delimiter {
		t.Fatalf("encoded frame missing trailing delimiter")
	}

	got, err := Decode(b[:len(b)-1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != f.ID || got.Method != f.Method || got.SessionID != f.SessionID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestSplitNULReassemblesPartialReads(t *testing.T) {
	payload := []byte(`{"id":1,"method":"Browser.getVersion"}`)
	stream := append(append([]byte{}, payload...), Delimiter)
	stream = append(stream, []byte(`{"id":2}`)...)
	stream = append(stream, Delimiter)

	// OneByteReader returns a single byte per Read, so every frame arrives
	// split across many reads.
	scanner := bufio.NewScanner(iotest.OneByteReader(bytes.NewReader(stream)))
	scanner.Split(SplitNUL)

	var tokens [][]byte
	for scanner.Scan() {
		tok := make([]byte, len(scanner.Bytes()))
		copy(tok, scanner.Bytes())
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if !bytes.Equal(tokens[0], payload) {
		t.Fatalf("token 0 = %q, want %q", tokens[0], payload)
	}
}

func TestTwoFramesSeparatedByExactlyOneDelimiter(t *testing.T) {
	a, _ := Encode(&Frame{ID: 1, Method: "A"})
	b, _ := Encode(&Frame{ID: 2, Method: "B"})
	combined := append(a, b...)

	count := 0
	for _, c := range combined {
		if c == Delimiter {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 delimiters across two frames, got %d", count)
	}
}

func TestIsEventVsResponse(t *testing.T) {
	ev := &Frame{Method: "Target.targetCreated"}
	if !ev.IsEvent() || ev.IsResponse() {
		t.Fatalf("expected event classification for %+v", ev)
	}
	resp := &Frame{ID: 3}
	if resp.IsEvent() || !resp.IsResponse() {
		t.Fatalf("expected response classification for %+v", resp)
	}
}
