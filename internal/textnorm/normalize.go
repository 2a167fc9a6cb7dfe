// Package textnorm reduces document text to the plain ASCII form the PDF
// emitter can render with its core fonts.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackRune replaces anything that survives every other step without an
// ASCII equivalent.
const fallbackRune = ' '

var dashRunes = map[rune]bool{
	'\u2010': true, // hyphen
	'\u2011': true, // non-breaking hyphen
	'\u2012': true, // figure dash
	'\u2013': true, // en dash
	'\u2014': true, // em dash
	'\u2015': true, // horizontal bar
	'\u2212': true, // minus sign
	'\ufe58': true,
	'\ufe63': true,
	'\uff0d': true,
}

var quoteRunes = map[rune]rune{
	'\u2018': '\'',
	'\u2019': '\'',
	'\u201a': '\'',
	'\u201b': '\'',
	'\u2032': '\'',
	'\u201c': '"',
	'\u201d': '"',
	'\u201e': '"',
	'\u201f': '"',
	'\u2033': '"',
}

var spaceRunes = map[rune]bool{
	'\u00a0': true, // no-break space
	'\u2000': true,
	'\u2001': true,
	'\u2002': true,
	'\u2003': true,
	'\u2004': true,
	'\u2005': true,
	'\u2006': true,
	'\u2007': true,
	'\u2008': true,
	'\u2009': true,
	'\u200a': true,
	'\u202f': true,
	'\u205f': true,
	'\u3000': true,
	'\u2028': true, // line separator
	'\u2029': true, // paragraph separator
}

// symbolTable holds the typographic symbols that have a readable ASCII
// spelling. It is consulted only after decomposition.
var symbolTable = map[rune]string{
	'«': `"`,
	'»': `"`,
	'‹': "<",
	'›': ">",
	'•': "*",
	'·': ".",
	'©': "(c)",
	'®': "(R)",
	'°': "deg",
	'×': "x",
	'÷': "/",
	'±': "+/-",
	'†': "+",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
	'¢': "c",
	'§': "S",
	'¶': "P",
	'ß': "ss",
	'æ': "ae",
	'Æ': "AE",
	'œ': "oe",
	'Œ': "OE",
	'ø': "o",
	'Ø': "O",
	'đ': "d",
	'Đ': "D",
	'ł': "l",
	'Ł': "L",
	'ð': "d",
	'Ð': "D",
	'þ': "th",
	'Þ': "Th",
	'¿': "?",
	'¡': "!",
	'→': "->",
	'←': "<-",
	'✓': "v",
}

// Normalize transliterates s to ASCII. The steps run in a fixed order:
// dashes, quotes, special spaces, NFKD decomposition, removal of combining
// marks, then the symbol table. Characters with no mapping become a single
// space. Normalize is idempotent.
func Normalize(s string) string {
	if isASCII(s) {
		return s
	}

	chain := transform.Chain(
		runes.Map(mapDash),
		runes.Map(mapQuote),
		runes.Map(mapSpace),
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
	)
	decomposed, _, err := transform.String(chain, s)
	if err != nil {
		decomposed = s
	}

	return mapRemaining(decomposed)
}

func mapDash(r rune) rune {
	if dashRunes[r] {
		return '-'
	}
	return r
}

func mapQuote(r rune) rune {
	if q, ok := quoteRunes[r]; ok {
		return q
	}
	return r
}

func mapSpace(r rune) rune {
	if spaceRunes[r] {
		return ' '
	}
	return r
}

func mapRemaining(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII+1:
			b.WriteRune(r)
		case symbolTable[r] != "":
			b.WriteString(symbolTable[r])
		default:
			b.WriteRune(fallbackRune)
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
