package captcha

import "strings"

// Type selects the recognition task: alphanumeric text or arithmetic math captchas.
type Type string

const (
	TypeText Type = "text"
	TypeMath Type = "math"
)

const (
	// Blank is the padding symbol, meaning "no character at this position".
	Blank = "_"
	// Unknown is returned for indices outside the vocabulary.
	Unknown = "?"
)

// ParseType maps a form value to a captcha type. Only the exact value "math"
// selects math; anything else, including "Math" or " math", is text.
func ParseType(s string) Type {
	if s == string(TypeMath) {
		return TypeMath
	}
	return TypeText
}

// Title returns the type name with its first letter upper-cased ("Text", "Math").
func (t Type) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Vocabulary is the ordered index -> symbol mapping a model predicts over.
type Vocabulary struct {
	symbols []string
	blank   int
}

// NewVocabulary builds a vocabulary from a string of single-character symbols.
// The blank symbol must appear exactly once.
func NewVocabulary(chars string) Vocabulary {
	v := Vocabulary{blank: -1}
	for _, r := range chars {
		if string(r) == Blank {
			v.blank = len(v.symbols)
		}
		v.symbols = append(v.symbols, string(r))
	}
	return v
}

// Size returns the number of symbols.
func (v Vocabulary) Size() int {
	return len(v.symbols)
}

// Symbol returns the symbol at index i, or Unknown if i is out of range.
func (v Vocabulary) Symbol(i int) string {
	if i < 0 || i >= len(v.symbols) {
		return Unknown
	}
	return v.symbols[i]
}

// IsBlank reports whether index i is the padding symbol.
func (v Vocabulary) IsBlank(i int) bool {
	return v.blank >= 0 && i == v.blank
}

// String returns the symbols in index order.
func (v Vocabulary) String() string {
	return strings.Join(v.symbols, "")
}

// Vocabularies used when the models were trained. The blank symbol was
// appended after the sorted character set in both cases.
var (
	TextVocabulary = NewVocabulary("0123456789abcdefghijklmnopqrstuvwxyz_")
	MathVocabulary = NewVocabulary("+-0123456789_")
)

// Profile groups everything fixed about one captcha type.
type Profile struct {
	Type         Type
	ModelName    string
	Vocabulary   Vocabulary
	OutputLength int
}

// Architecture describes the network family shared by both models.
const Architecture = "CNN + ViT + BiLSTM"

var profiles = map[Type]Profile{
	TypeText: {
		Type:         TypeText,
		ModelName:    "Text CAPTCHA Model",
		Vocabulary:   TextVocabulary,
		OutputLength: 5,
	},
	TypeMath: {
		Type:         TypeMath,
		ModelName:    "Math CAPTCHA Model",
		Vocabulary:   MathVocabulary,
		OutputLength: 8,
	},
}

// ProfileFor returns the profile for t, falling back to text.
func ProfileFor(t Type) Profile {
	if p, ok := profiles[t]; ok {
		return p
	}
	return profiles[TypeText]
}

// Types lists the supported captcha types in a stable order.
func Types() []Type {
	return []Type{TypeText, TypeMath}
}
