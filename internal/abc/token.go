package abc

type Kind int

const (
	KindVoice Kind = iota
	KindComment
	KindExtraRepeat
	KindAccidental
	KindNoteOrRest
	KindLengthFactor
	KindOctaveModifier
	KindSectionBegin
	KindSectionEnd
	KindRepeatBegin
	KindRepeatEnd
	KindBeginChord
	KindEndChord
	KindBeginTuplet
	KindBar
	KindEndOfInput
)

var kindNames = [...]string{
	KindVoice:          "VOICE",
	KindComment:        "COMMENT",
	KindExtraRepeat:    "EXTRA_REPEAT",
	KindAccidental:     "ACCIDENTAL",
	KindNoteOrRest:     "NOTE_OR_REST",
	KindLengthFactor:   "LENGTH_FACTOR",
	KindOctaveModifier: "OCTAVE_MODIFIER",
	KindSectionBegin:   "SECTION_BEGIN",
	KindSectionEnd:     "SECTION_END",
	KindRepeatBegin:    "REPEAT_BEGIN",
	KindRepeatEnd:      "REPEAT_END",
	KindBeginChord:     "BEGIN_CHORD",
	KindEndChord:       "END_CHORD",
	KindBeginTuplet:    "BEGIN_TUPLET",
	KindBar:            "BAR",
	KindEndOfInput:     "END_OF_INPUT",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

type Token struct {
	Kind Kind
	Text string
}

var endOfInput = Token{Kind: KindEndOfInput}
