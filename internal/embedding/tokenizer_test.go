package embedding

import (
	"reflect"
	"testing"
)

func TestHashTokenizer_Encode(t *testing.T) {
	tok := NewHashTokenizer(6)
	enc := tok.Encode("Warranty: two years.")

	if len(enc.InputIDs) != 6 || len(enc.AttentionMask) != 6 || len(enc.TokenTypeIDs) != 6 {
		t.Fatalf("lengths = %d/%d/%d, want 6", len(enc.InputIDs), len(enc.AttentionMask), len(enc.TokenTypeIDs))
	}
	if enc.InputIDs[0] != clsTokenID {
		t.Errorf("first ID = %d, want [CLS]", enc.InputIDs[0])
	}
	if enc.InputIDs[4] != sepTokenID {
		t.Errorf("ID after 3 words = %d, want [SEP]", enc.InputIDs[4])
	}
	wantMask := []int64{1, 1, 1, 1, 1, 0}
	if !reflect.DeepEqual(enc.AttentionMask, wantMask) {
		t.Errorf("mask = %v, want %v", enc.AttentionMask, wantMask)
	}
	for i := 1; i <= 3; i++ {
		if id := enc.InputIDs[i]; id < firstWordID || id >= vocabSize {
			t.Errorf("word ID %d out of range: %d", i, id)
		}
	}
}

func TestHashTokenizer_caseAndPunctuation(t *testing.T) {
	tok := NewHashTokenizer(8)
	a := tok.Encode("Hello, World")
	b := tok.Encode("hello world!")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("encodings differ:\n%v\n%v", a.InputIDs, b.InputIDs)
	}
}

func TestHashTokenizer_truncates(t *testing.T) {
	tok := NewHashTokenizer(4)
	enc := tok.Encode("one two three four five")
	if enc.InputIDs[3] != sepTokenID {
		t.Errorf("last ID = %d, want [SEP]", enc.InputIDs[3])
	}
	for i, m := range enc.AttentionMask {
		if m != 1 {
			t.Errorf("mask[%d] = 0 on a full encoding", i)
		}
	}
}

func TestHashTokenizer_empty(t *testing.T) {
	enc := NewHashTokenizer(4).Encode("   ")
	want := []int64{clsTokenID, sepTokenID, padTokenID, padTokenID}
	if !reflect.DeepEqual(enc.InputIDs, want) {
		t.Errorf("IDs = %v, want %v", enc.InputIDs, want)
	}
}

func TestNewHashTokenizer_default(t *testing.T) {
	if got := NewHashTokenizer(1).MaxTokens(); got != defaultMaxTokens {
		t.Errorf("MaxTokens() = %d, want %d", got, defaultMaxTokens)
	}
}

func TestSplitWords(t *testing.T) {
	got := splitWords("  The\tend-user's  GUIDE\n")
	want := []string{"the", "end", "user", "s", "guide"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitWords = %v, want %v", got, want)
	}
	if len(splitWords("")) != 0 {
		t.Error("empty text should have no words")
	}
}
