package onpair

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/onpairdb/onpair/persist"
)

func TestModelEncodeBeforeTrainFails(t *testing.T) {
	m := NewModel()
	_, err := m.EncodeStrings([]string{"a"})
	if err != ErrUntrainedModel {
		t.Fatalf("err = %v, want ErrUntrainedModel", err)
	}
}

func TestModelTrainThenEncodeTwice(t *testing.T) {
	m := NewModel(WithSeed(1), WithThreshold(2))
	training := make([]string, 50)
	for i := range training {
		training[i] = "foobar"
	}
	m.TrainStrings(training)

	if !m.Trained() {
		t.Fatalf("model not marked trained")
	}

	first, err := m.EncodeStrings([]string{"foobar", "foobar"})
	if err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	second, err := m.EncodeStrings([]string{"unseen string"})
	if err != nil {
		t.Fatalf("second Encode: %v", err)
	}

	buf := make([]byte, 256)
	n := DecodeString(first, 0, buf)
	if string(buf[:n]) != "foobar" {
		t.Fatalf("decoded %q, want %q", buf[:n], "foobar")
	}

	n = DecodeString(second, 0, buf)
	if string(buf[:n]) != "unseen string" {
		t.Fatalf("decoded %q, want %q", buf[:n], "unseen string")
	}
}

func TestModelArchiveRoundTripsThroughPersist(t *testing.T) {
	m := NewModel(WithSeed(2), WithThreshold(2))
	m.TrainStrings([]string{"alpha", "beta", "alpha", "beta", "alpha"})

	archive, err := m.EncodeStrings([]string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var buf bytes.Buffer
	if _, err := archive.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var restored persist.Archive
	if _, err := restored.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	out := make([]byte, 64)
	n := DecodeAll(&restored, out)
	if string(out[:n]) != "alphabeta" {
		t.Fatalf("DecodeAll = %q, want %q", out[:n], "alphabeta")
	}
}

func TestModelEncodeDoesNotAccumulateAcrossCalls(t *testing.T) {
	m := NewModel(WithSeed(3))
	m.TrainStrings([]string{strings.Repeat("z", 20)})

	a1, err := m.EncodeStrings([]string{"aa"})
	if err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	a2, err := m.EncodeStrings([]string{"aa", "bb"})
	if err != nil {
		t.Fatalf("second Encode: %v", err)
	}

	if len(a1.Bounds) != 2 {
		t.Fatalf("first archive bounds = %v, want length 2", a1.Bounds)
	}
	if len(a2.Bounds) != 3 {
		t.Fatalf("second archive bounds = %v, want length 3", a2.Bounds)
	}
}

func TestDecodeStringCheckedExactBuffer(t *testing.T) {
	m := NewModel(WithSeed(1))
	m.TrainStrings([]string{"hello world", "another string"})

	archive, err := m.EncodeStrings([]string{"hello world", "another string"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tiny := make([]byte, 2)
	if _, err := DecodeStringChecked(archive, 0, tiny); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}

	// An exactly-sized buffer must not be written past, even though the
	// string's last token may be shorter than fastCopyWidth.
	want := "hello world"
	exact := make([]byte, len(want))
	n, err := DecodeStringChecked(archive, 0, exact)
	if err != nil {
		t.Fatalf("unexpected error with exactly sized buffer: %v", err)
	}
	if string(exact[:n]) != want {
		t.Fatalf("got %q, want %q", exact[:n], want)
	}

	wantAll := "hello worldanother string"
	exactAll := make([]byte, len(wantAll))
	n, err = DecodeAllChecked(archive, exactAll)
	if err != nil {
		t.Fatalf("unexpected error with exactly sized buffer: %v", err)
	}
	if string(exactAll[:n]) != wantAll {
		t.Fatalf("got %q, want %q", exactAll[:n], wantAll)
	}
}
