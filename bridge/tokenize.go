package bridge

// charsPerToken is the rough subword ratio the token estimate assumes.
const charsPerToken = 4

// Tokenize returns an approximate token count for text: length divided by
// four, with a minimum of 1 for non-empty input. Empty input returns -1.
//
// This is a heuristic stand-in for a real subword tokenizer and must be
// treated as approximate - good enough for budget checks against
// ContextSize, not for exact accounting.
func (rt *Runtime) Tokenize(text string) int {
	if text == "" {
		return -1
	}
	n := len(text) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// VocabSize returns the model vocabulary size. Constant placeholder; a real
// engine reports this from model metadata.
func (rt *Runtime) VocabSize() int {
	return ModelVocabSize
}
