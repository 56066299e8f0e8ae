package words

import "strings"

// NumberSystem holds the lexical rules of one language's cardinal numbers.
type NumberSystem interface {
	// Zero is returned for an amount of 0.
	Zero() string
	// Negative prefixes the words of a negative amount.
	Negative() string
	// Conjunction joins non-empty segments ("and").
	Conjunction() string
	// Ones returns the word for 1..9.
	Ones(n int) string
	// Teens returns the word for 10..19.
	Teens(n int) string
	// Tens returns the word for 20, 30, ... 90 given the tens digit 2..9.
	Tens(n int) string
	// Hundreds returns the word for 100..900 given the hundreds digit 1..9.
	Hundreds(n int) string
	// JoinTensOnes combines the tens word and the ones word of 21..99.
	JoinTensOnes(tens, ones string) string
	// Scales lists the magnitude groups, largest first.
	Scales() []Scale
}

// Scale is one magnitude group with its grammatical forms.
type Scale struct {
	Value int64
	// One is used for a scaled quantity of exactly 1 ("ألف").
	One string
	// Two is the dual form for exactly 2 ("ألفان").
	Two string
	// Few is the plural noun after a cardinal of 3..10 ("آلاف").
	Few string
	// Many is the noun after a quantity of 11 and above ("ألف").
	Many string
}

// Table is a NumberSystem backed by lookup tables.
type Table struct {
	ZeroWord     string
	NegativeWord string
	And          string
	OnesWords    [10]string
	TeenWords    [10]string
	TensWords    [10]string
	HundredWords [10]string
	ScaleGroups  []Scale
	// OnesFirst writes 21 as "one and twenty" instead of "twenty-one".
	OnesFirst bool
	// TensJoiner is used between tens and ones when OnesFirst is false.
	TensJoiner string
}

func (t *Table) Zero() string { return t.ZeroWord }
func (t *Table) Negative() string { return t.NegativeWord }
func (t *Table) Conjunction() string { return t.And }
func (t *Table) Ones(n int) string { return t.OnesWords[n] }
func (t *Table) Teens(n int) string { return t.TeenWords[n-10] }
func (t *Table) Tens(n int) string { return t.TensWords[n] }
func (t *Table) Hundreds(n int) string { return t.HundredWords[n] }
func (t *Table) Scales() []Scale { return t.ScaleGroups }

func (t *Table) JoinTensOnes(tens, ones string) string {
	if t.OnesFirst {
		return ones + t.And + tens
	}
	return tens + t.TensJoiner + ones
}

// Arabic renders amounts the way Saudi contracts spell them out.
var Arabic NumberSystem = &Table{
	ZeroWord:     "صفر",
	NegativeWord: "سالب",
	And:          " و",
	OnesWords:    [10]string{"", "واحد", "اثنان", "ثلاثة", "أربعة", "خمسة", "ستة", "سبعة", "ثمانية", "تسعة"},
	TeenWords: [10]string{
		"عشرة", "أحد عشر", "اثنا عشر", "ثلاثة عشر", "أربعة عشر",
		"خمسة عشر", "ستة عشر", "سبعة عشر", "ثمانية عشر", "تسعة عشر",
	},
	TensWords: [10]string{"", "", "عشرون", "ثلاثون", "أربعون", "خمسون", "ستون", "سبعون", "ثمانون", "تسعون"},
	HundredWords: [10]string{
		"", "مائة", "مائتان", "ثلاثمائة", "أربعمائة",
		"خمسمائة", "ستمائة", "سبعمائة", "ثمانمائة", "تسعمائة",
	},
	ScaleGroups: []Scale{
		{Value: 1_000_000_000, One: "مليار", Two: "ملياران", Few: "مليارات", Many: "مليار"},
		{Value: 1_000_000, One: "مليون", Two: "مليونان", Few: "ملايين", Many: "مليون"},
		{Value: 1_000, One: "ألف", Two: "ألفان", Few: "آلاف", Many: "ألف"},
	},
	OnesFirst: true,
}

// English has no dual; One and Two carry the cardinal.
var English NumberSystem = &Table{
	ZeroWord:     "zero",
	NegativeWord: "negative",
	And:          " and ",
	OnesWords:    [10]string{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
	TeenWords: [10]string{
		"ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	},
	TensWords: [10]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"},
	HundredWords: [10]string{
		"", "one hundred", "two hundred", "three hundred", "four hundred",
		"five hundred", "six hundred", "seven hundred", "eight hundred", "nine hundred",
	},
	ScaleGroups: []Scale{
		{Value: 1_000_000_000, One: "one billion", Two: "two billion", Few: "billion", Many: "billion"},
		{Value: 1_000_000, One: "one million", Two: "two million", Few: "million", Many: "million"},
		{Value: 1_000, One: "one thousand", Two: "two thousand", Few: "thousand", Many: "thousand"},
	},
	TensJoiner: "-",
}

// ForLocale returns the number system registered for a language code.
func ForLocale(locale string) (NumberSystem, bool) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "ar", "ar-sa", "arabic":
		return Arabic, true
	case "en", "en-us", "en-gb", "english":
		return English, true
	}
	return nil, false
}
