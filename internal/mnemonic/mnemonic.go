// Package mnemonic provides BIP39 mnemonic generation, validation, input
// normalization and seed derivation for both supported chains.
package mnemonic

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// CellSeedSize is the length of the direct-hash seed used by the cell chain.
const CellSeedSize = 32

var (
	// ErrInvalidWordCount indicates the mnemonic must be 12 or 24 words.
	ErrInvalidWordCount = walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, "word count must be 12 or 24")

	// whitespaceRegex matches one or more whitespace characters.
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// numberedListRegex matches numbered list prefixes like "1." "2)" "3:"
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)

	// bulletListRegex matches bullet prefixes like "- " "* " "• "
	bulletListRegex = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// Generate creates a new BIP39 mnemonic phrase.
// wordCount must be 12 (128 bits entropy) or 24 (256 bits entropy).
func Generate(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}
	defer clear(entropy)

	return bip39.NewMnemonic(entropy)
}

// Validate checks word count, word validity and checksum.
func Validate(mnemonic string) error {
	normalized := Normalize(mnemonic)
	if normalized == "" {
		return walleterr.ErrInvalidMnemonic
	}

	// Fast word count check before checksum validation.
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return ErrInvalidWordCount
	}

	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		if typos := DetectTypos(normalized); len(typos) > 0 {
			return walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
		}
		return walleterr.ErrInvalidMnemonic
	}

	return nil
}

// Normalize cleans pasted mnemonic input: lowercases, strips numbered and
// bulleted list prefixes, turns commas into spaces and collapses whitespace.
func Normalize(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// Words returns the normalized word list of a mnemonic.
func Words(mnemonic string) []string {
	return strings.Fields(Normalize(mnemonic))
}

// ToSeed converts a validated mnemonic into the 64-byte BIP39 seed
// (PBKDF2-HMAC-SHA512, 2048 rounds). The caller must wipe the result.
func ToSeed(mnemonic, passphrase string) ([]byte, error) {
	if err := Validate(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeed(Normalize(mnemonic), passphrase), nil
}

// CellSeed derives the cell chain seed: SHA3-256 over the words joined by a
// single space. This is not BIP39 stretching; the external cell wallet
// derives keys this way and restored wallets must match it.
func CellSeed(words []string) ([CellSeedSize]byte, error) {
	if len(words) == 0 {
		return [CellSeedSize]byte{}, walleterr.ErrInvalidMnemonic
	}
	joined := []byte(strings.Join(words, " "))
	defer clear(joined)
	return sha3.Sum256(joined), nil
}

// WordList returns the BIP39 English word list.
func WordList() []string {
	return bip39.GetWordList()
}

// IsValidWord checks if a word is in the BIP39 word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

// TypoInfo describes a word that is not in the BIP39 list.
type TypoInfo struct {
	Index      int // 0-based position in the phrase
	Word       string
	Suggestion string // closest list word, empty if none within MaxTypoDistance
	Distance   int
}

// SuggestWord finds the closest BIP39 word by Levenshtein distance.
// Returns "" if nothing is within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos lists the words of mnemonic that are not BIP39 words.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range Words(mnemonic) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line, positions 1-based.
func FormatTypoSuggestions(typos []TypoInfo) string {
	var b strings.Builder
	for i, typo := range typos {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Word ")
		b.WriteString(strconv.Itoa(typo.Index + 1))
		b.WriteString(": '")
		b.WriteString(typo.Word)
		b.WriteByte('\'')
		if typo.Suggestion != "" {
			b.WriteString(" - did you mean '")
			b.WriteString(typo.Suggestion)
			b.WriteString("'?")
		} else {
			b.WriteString(" is not a valid BIP39 word")
		}
	}
	return b.String()
}
