// Package tokenizer splits document and query text into words. The engine is
// encoding-agnostic: the only separator is the ASCII space byte, words are
// compared bytewise, and a word is valid when it carries no control bytes.
package tokenizer

// SplitIntoWords returns the maximal runs of non-space bytes in text, in
// order. Runs of consecutive spaces produce no empty words.
func SplitIntoWords(text string) []string {
	words := make([]string, 0, len(text)/5)
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// IsValidWord reports whether word is free of control bytes in [0x00, 0x20).
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}
